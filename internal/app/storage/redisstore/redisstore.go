// Package redisstore implements the storage interfaces on Redis. Sessions
// are stored as JSON values with the retention TTL applied by Redis itself;
// the symbol universe is persisted per exchange under a shared key prefix.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
)

const (
	sessionPrefix  = "scan:session:"
	universePrefix = "scan:universe:"
	scanBatch      = 100
)

// Store is a Redis-backed SessionStore and UniverseStore.
type Store struct {
	client *redis.Client
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Tests use this with a mock server.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// SessionStore implementation ------------------------------------------------

func (s *Store) PutSession(ctx context.Context, session scan.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, sessionPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: put session %s: %v", storage.ErrUnavailable, session.ID, err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (scan.Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return scan.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return scan.Session{}, fmt.Errorf("%w: get session %s: %v", storage.ErrUnavailable, id, err)
	}

	var session scan.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return scan.Session{}, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]scan.Session, error) {
	keys, err := s.scanKeys(ctx, sessionPrefix+"*")
	if err != nil {
		return nil, err
	}

	var result []scan.Session
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: get %s: %v", storage.ErrUnavailable, key, err)
		}
		var session scan.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			continue
		}
		if userID != "" && session.UserID != userID {
			continue
		}
		result = append(result, session)
	}
	return result, nil
}

// UniverseStore implementation -------------------------------------------------

func (s *Store) PutUniverse(ctx context.Context, exchange string, symbols []market.SymbolInfo) error {
	payload, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("marshal universe %s: %w", exchange, err)
	}
	if err := s.client.Set(ctx, universePrefix+exchange, payload, 0).Err(); err != nil {
		return fmt.Errorf("%w: put universe %s: %v", storage.ErrUnavailable, exchange, err)
	}
	return nil
}

func (s *Store) GetUniverse(ctx context.Context, exchange string) ([]market.SymbolInfo, error) {
	raw, err := s.client.Get(ctx, universePrefix+exchange).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get universe %s: %v", storage.ErrUnavailable, exchange, err)
	}

	var symbols []market.SymbolInfo
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("unmarshal universe %s: %w", exchange, err)
	}
	return symbols, nil
}

func (s *Store) ListExchanges(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx, universePrefix+"*")
	if err != nil {
		return nil, err
	}

	exchanges := make([]string, 0, len(keys))
	for _, key := range keys {
		exchanges = append(exchanges, strings.TrimPrefix(key, universePrefix))
	}
	return exchanges, nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", storage.ErrUnavailable, pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
