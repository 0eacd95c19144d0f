package exchange

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second})

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("closed breaker rejected call %d: %v", i, err)
		}
		b.RecordFailure()
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed below threshold, got %s", b.State())
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open at threshold, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("open breaker should fail fast, got %v", err)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	if got := b.ConsecutiveFailures(); got != 0 {
		t.Fatalf("expected streak reset, got %d", got)
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != BreakerClosed {
		t.Fatalf("streak should restart after success, got %s", b.State())
	}
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	// Still cooling down.
	now = now.Add(5 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected rejection during cooldown, got %v", err)
	}

	// Cooldown elapsed: exactly one probe gets through.
	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe admission, got %v", err)
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("concurrent half-open caller should fail fast, got %v", err)
	}

	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Fatalf("successful probe should close circuit, got %s", b.State())
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe admission, got %v", err)
	}

	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("failed probe should reopen, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("reopened breaker should fail fast, got %v", err)
	}
}

func TestBreaker_CancelReleasesProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe admission, got %v", err)
	}

	// Abandoned probe says nothing about exchange health; the slot frees up.
	b.RecordCancel()
	if b.State() != BreakerHalfOpen {
		t.Fatalf("cancel should keep half-open, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("next caller should get the probe slot, got %v", err)
	}
}
