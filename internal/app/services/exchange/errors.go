package exchange

import "errors"

// Failure classes surfaced by the client pool. Both are absorbed by the
// orchestrator: a unit that hits one is skipped for the current scan, never
// escalated to a scan failure.
var (
	// ErrUnavailable means the exchange cannot be called right now: the
	// circuit is open or the network call failed.
	ErrUnavailable = errors.New("exchange: unavailable")

	// ErrRateLimited means no token was available for the exchange. Treated
	// as a cache miss with no refresh.
	ErrRateLimited = errors.New("exchange: rate limited")
)
