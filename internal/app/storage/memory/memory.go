// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces. It is intended for tests and single-node deployments
// and deliberately keeps the implementation simple.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
)

type sessionEntry struct {
	session   scan.Session
	expiresAt time.Time
}

// Store is an in-memory SessionStore and UniverseStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	universe map[string][]market.SymbolInfo

	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]sessionEntry),
		universe: make(map[string][]market.SymbolInfo),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests use this to exercise TTL
// expiry without sleeping.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SessionStore implementation ------------------------------------------------

func (s *Store) PutSession(_ context.Context, session scan.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := sessionEntry{session: session.Clone()}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (scan.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok || s.expired(entry) {
		return scan.Session{}, storage.ErrNotFound
	}
	return entry.session.Clone(), nil
}

func (s *Store) ListSessions(_ context.Context, userID string) ([]scan.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []scan.Session
	for _, entry := range s.sessions {
		if s.expired(entry) {
			continue
		}
		if userID != "" && entry.session.UserID != userID {
			continue
		}
		result = append(result, entry.session.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result, nil
}

func (s *Store) expired(entry sessionEntry) bool {
	return !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)
}

// UniverseStore implementation -------------------------------------------------

func (s *Store) PutUniverse(_ context.Context, exchange string, symbols []market.SymbolInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]market.SymbolInfo, len(symbols))
	copy(copied, symbols)
	s.universe[exchange] = copied
	return nil
}

func (s *Store) GetUniverse(_ context.Context, exchange string) ([]market.SymbolInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols, ok := s.universe[exchange]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := make([]market.SymbolInfo, len(symbols))
	copy(copied, symbols)
	return copied, nil
}

func (s *Store) ListExchanges(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exchanges := make([]string, 0, len(s.universe))
	for name := range s.universe {
		exchanges = append(exchanges, name)
	}
	sort.Strings(exchanges)
	return exchanges, nil
}
