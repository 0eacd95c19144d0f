package exchange

import (
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures circuit breaker behaviour.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before allowing a probe.
	Cooldown time.Duration
	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// Breaker is a per-exchange circuit breaker. In the half-open state exactly
// one probe call is admitted; concurrent callers fail fast rather than
// queue, so a recovering exchange is never hit by a thundering herd.
type Breaker struct {
	mu sync.Mutex

	config BreakerConfig
	state  BreakerState

	failures      int
	openedAt      time.Time
	probeInFlight bool

	now func() time.Time
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	return &Breaker{
		config: config,
		state:  BreakerClosed,
		now:    time.Now,
	}
}

// Allow checks whether a call may proceed. It returns ErrUnavailable when
// the circuit is open, or when it is half-open and the probe slot is taken.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) > b.config.Cooldown {
			b.transitionTo(BreakerHalfOpen)
			b.probeInFlight = true
			return nil
		}
		return ErrUnavailable
	case BreakerHalfOpen:
		if b.probeInFlight {
			return ErrUnavailable
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess records a successful call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probeInFlight = false
		b.transitionTo(BreakerClosed)
	}
}

// RecordFailure records a failed call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.probeInFlight = false
		b.transitionTo(BreakerOpen)
	}
}

// RecordCancel releases the half-open probe slot without counting the
// outcome. Used when a call is abandoned by scan cancellation rather than
// failing on its own.
func (b *Breaker) RecordCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.probeInFlight = false
	}
}

func (b *Breaker) transitionTo(newState BreakerState) {
	oldState := b.state
	b.state = newState

	switch newState {
	case BreakerClosed:
		b.failures = 0
	case BreakerOpen:
		b.openedAt = b.now()
	}

	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(oldState, newState)
	}
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak.
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
