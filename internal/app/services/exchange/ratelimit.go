package exchange

import (
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig describes the token budget for one exchange.
type LimitConfig struct {
	// RequestsPerMinute is the sustained refill rate.
	RequestsPerMinute int
	// Burst is the bucket capacity.
	Burst int
}

// RateLimiter gates outbound calls per exchange with a token bucket.
// Acquire never blocks: a caller that cannot get a token must fall back to
// cached data or skip the exchange for this scan. A blocking limiter could
// alone consume the whole scan deadline.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	configs  map[string]LimitConfig
	fallback LimitConfig
}

// NewRateLimiter creates a limiter with the given default budget for
// exchanges without an explicit configuration.
func NewRateLimiter(fallback LimitConfig) *RateLimiter {
	if fallback.RequestsPerMinute <= 0 {
		fallback.RequestsPerMinute = 60
	}
	if fallback.Burst <= 0 {
		fallback.Burst = 10
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		configs:  make(map[string]LimitConfig),
		fallback: fallback,
	}
}

// Configure sets the budget for one exchange. Call before the first
// Acquire for that exchange.
func (rl *RateLimiter) Configure(exchange string, cfg LimitConfig) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = rl.fallback.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = rl.fallback.Burst
	}
	rl.configs[exchange] = cfg
	delete(rl.limiters, exchange)
}

// Acquire takes one token for the exchange, reporting whether a token was
// available. The token is consumed on every call attempt, successful or not.
func (rl *RateLimiter) Acquire(exchange string) bool {
	return rl.limiter(exchange).Allow()
}

func (rl *RateLimiter) limiter(exchange string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.limiters[exchange]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[exchange]; ok {
		return limiter
	}
	cfg, ok := rl.configs[exchange]
	if !ok {
		cfg = rl.fallback
	}
	limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.Burst)
	rl.limiters[exchange] = limiter
	return limiter
}
