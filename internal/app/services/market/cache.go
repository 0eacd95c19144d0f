// Package market provides the shared price cache consulted by every scan.
// The cache is a process-wide singleton: quotes fetched for one user's scan
// serve every concurrent scan until they expire.
package market

import (
	"sync"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
)

// CacheConfig controls quote freshness.
type CacheConfig struct {
	// DefaultTTL is the freshness window for symbols without a tier.
	DefaultTTL time.Duration
	// TierTTL overrides the freshness window per volume tier. High-volume
	// symbols move fast and get shorter TTLs.
	TierTTL map[market.VolumeTier]time.Duration
	// HardTTL is the age beyond which a quote is unusable even as a stale
	// fallback.
	HardTTL time.Duration
}

// DefaultCacheConfig returns sensible defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL: 10 * time.Second,
		TierTTL: map[market.VolumeTier]time.Duration{
			market.TierHigh:   5 * time.Second,
			market.TierMedium: 10 * time.Second,
			market.TierLow:    15 * time.Second,
		},
		HardTTL: 2 * time.Minute,
	}
}

type cacheKey struct {
	exchange string
	symbol   string
}

type flight struct {
	done chan struct{}
}

// Cache is a read-through TTL cache of last-known prices keyed by
// (exchange, symbol). Get never blocks on a network fetch; populating on a
// miss is the caller's job. Writes are idempotent last-writer-wins
// replacements, so no per-symbol locking is needed beyond the map lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]market.PriceQuote
	flights map[cacheKey]*flight
	tiers   map[cacheKey]market.VolumeTier

	config CacheConfig
	now    func() time.Time
}

// NewCache creates an empty price cache.
func NewCache(config CacheConfig) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Second
	}
	if config.HardTTL <= 0 {
		config.HardTTL = 2 * time.Minute
	}
	return &Cache{
		entries: make(map[cacheKey]market.PriceQuote),
		flights: make(map[cacheKey]*flight),
		tiers:   make(map[cacheKey]market.VolumeTier),
		config:  config,
		now:     time.Now,
	}
}

// WithClock overrides the time source for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the last-known quote for (exchange, symbol). fresh reports
// whether the quote is within its TTL; ok reports whether any usable quote
// exists at all. Quotes past the hard TTL are dropped and reported missing.
func (c *Cache) Get(exchange, symbol string) (quote market.PriceQuote, fresh, ok bool) {
	key := cacheKey{exchange: exchange, symbol: symbol}

	c.mu.RLock()
	quote, ok = c.entries[key]
	tier := c.tiers[key]
	c.mu.RUnlock()

	if !ok {
		return market.PriceQuote{}, false, false
	}

	now := c.now()
	if quote.IsStale(now, c.config.HardTTL) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher quote may have landed.
		if current, still := c.entries[key]; still && current.FetchedAt.Equal(quote.FetchedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return market.PriceQuote{}, false, false
	}

	return quote, !quote.IsStale(now, c.ttlFor(tier)), true
}

// Put stores a quote unconditionally. Clock skew between writers is
// tolerated by trusting the caller-supplied FetchedAt.
func (c *Cache) Put(quote market.PriceQuote) {
	key := cacheKey{exchange: quote.Exchange, symbol: quote.Symbol}
	c.mu.Lock()
	c.entries[key] = quote
	c.mu.Unlock()
}

// UpdateTiers records volume tiers from the symbol universe so tiered TTLs
// apply. Called by the universe refresher.
func (c *Cache) UpdateTiers(symbols []market.SymbolInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, info := range symbols {
		c.tiers[cacheKey{exchange: info.Exchange, symbol: info.Symbol}] = info.Tier
	}
}

// BeginFetch registers intent to fetch (exchange, symbol). The first caller
// becomes the leader and must call EndFetch when done; followers receive a
// channel that closes when the leader finishes, so concurrent misses for
// one symbol coalesce into a single network call.
func (c *Cache) BeginFetch(exchange, symbol string) (done <-chan struct{}, leader bool) {
	key := cacheKey{exchange: exchange, symbol: symbol}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.flights[key]; ok {
		return f.done, false
	}
	f := &flight{done: make(chan struct{})}
	c.flights[key] = f
	return f.done, true
}

// EndFetch releases the in-flight marker and wakes any followers.
func (c *Cache) EndFetch(exchange, symbol string) {
	key := cacheKey{exchange: exchange, symbol: symbol}

	c.mu.Lock()
	f, ok := c.flights[key]
	if ok {
		delete(c.flights, key)
	}
	c.mu.Unlock()

	if ok {
		close(f.done)
	}
}

// Len reports the number of cached quotes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) ttlFor(tier market.VolumeTier) time.Duration {
	if ttl, ok := c.config.TierTTL[tier]; ok && ttl > 0 {
		return ttl
	}
	return c.config.DefaultTTL
}
