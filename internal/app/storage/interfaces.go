// Package storage defines the persistence interfaces consumed by the scan
// engine. Implementations live in subpackages; the engine depends only on
// TTL-capable get/set/list semantics, not on any particular product.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/scan"
)

// ErrNotFound is returned when a record does not exist or has expired.
var ErrNotFound = errors.New("storage: not found")

// ErrUnavailable is returned when the backing store cannot be reached.
// The orchestrator treats this as fatal for the affected scan.
var ErrUnavailable = errors.New("storage: unavailable")

// SessionStore persists scan sessions with a retention TTL.
type SessionStore interface {
	PutSession(ctx context.Context, session scan.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (scan.Session, error)
	ListSessions(ctx context.Context, userID string) ([]scan.Session, error)
}

// UniverseStore persists the per-exchange tradable-symbol catalogue written
// by the background refresher.
type UniverseStore interface {
	PutUniverse(ctx context.Context, exchange string, symbols []market.SymbolInfo) error
	GetUniverse(ctx context.Context, exchange string) ([]market.SymbolInfo, error)
	ListExchanges(ctx context.Context) ([]string, error)
}
