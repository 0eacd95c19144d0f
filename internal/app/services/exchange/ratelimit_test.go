package exchange

import "testing"

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(LimitConfig{RequestsPerMinute: 60, Burst: 3})
	rl.Configure("binance", LimitConfig{RequestsPerMinute: 60, Burst: 3})

	for i := 0; i < 3; i++ {
		if !rl.Acquire("binance") {
			t.Fatalf("expected token %d within burst", i)
		}
	}
	if rl.Acquire("binance") {
		t.Fatalf("expected denial after burst exhausted")
	}
}

func TestRateLimiter_PerExchangeIsolation(t *testing.T) {
	rl := NewRateLimiter(LimitConfig{RequestsPerMinute: 60, Burst: 1})
	rl.Configure("binance", LimitConfig{RequestsPerMinute: 60, Burst: 1})
	rl.Configure("kraken", LimitConfig{RequestsPerMinute: 60, Burst: 1})

	if !rl.Acquire("binance") {
		t.Fatalf("binance should have a token")
	}
	if rl.Acquire("binance") {
		t.Fatalf("binance budget should be exhausted")
	}
	// Exhausting one exchange's budget must not touch another's.
	if !rl.Acquire("kraken") {
		t.Fatalf("kraken budget should be untouched")
	}
}

func TestRateLimiter_FallbackBudget(t *testing.T) {
	rl := NewRateLimiter(LimitConfig{RequestsPerMinute: 60, Burst: 2})

	if !rl.Acquire("unconfigured") {
		t.Fatalf("unconfigured exchange should use fallback budget")
	}
	if !rl.Acquire("unconfigured") {
		t.Fatalf("fallback burst should allow 2 tokens")
	}
	if rl.Acquire("unconfigured") {
		t.Fatalf("expected denial after fallback burst")
	}
}
