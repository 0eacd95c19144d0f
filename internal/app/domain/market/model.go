// Package market defines market-data types shared across the engine.
package market

import "time"

// VolumeTier is a coarse liquidity classification for a tradable symbol.
// Higher tiers get shorter cache TTLs because their prices move faster.
type VolumeTier string

const (
	TierHigh   VolumeTier = "high"
	TierMedium VolumeTier = "medium"
	TierLow    VolumeTier = "low"
)

// PriceQuote is a point-in-time price observation for one symbol on one
// exchange. Quotes are value types; consumers receive copies and never
// mutate shared state.
type PriceQuote struct {
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume_24h"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Age reports how long ago the quote was fetched.
func (q PriceQuote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// IsStale reports whether the quote is older than the given TTL.
func (q PriceQuote) IsStale(now time.Time, ttl time.Duration) bool {
	return q.Age(now) > ttl
}

// SymbolInfo describes one tradable symbol on one exchange.
type SymbolInfo struct {
	Exchange string     `json:"exchange"`
	Symbol   string     `json:"symbol"`
	Tier     VolumeTier `json:"tier"`
}
