// Package universe maintains the catalogue of tradable symbols per
// exchange. The catalogue is refreshed in the background and read from an
// in-memory snapshot, so resolving the universe for a scan never triggers a
// live discovery call and never blocks on the store.
package universe

import (
	"context"
	"errors"
	"sync"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

// fallbackPairs is served when no cached universe exists yet for an
// exchange. A scan degrades to the majors rather than blocking or failing.
var fallbackPairs = []string{"BTC/USDT", "ETH/USDT"}

// Registry resolves the symbol universe for scans.
type Registry struct {
	store     storage.UniverseStore
	exchanges []string
	log       *logger.Logger

	mu       sync.RWMutex
	snapshot map[string][]market.SymbolInfo
}

// NewRegistry creates a registry covering the given exchanges.
func NewRegistry(store storage.UniverseStore, exchanges []string, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewDefault("universe")
	}
	return &Registry{
		store:     store,
		exchanges: exchanges,
		log:       log,
		snapshot:  make(map[string][]market.SymbolInfo),
	}
}

// Warm loads previously persisted universes into the in-memory snapshot.
// Called once at startup; a missing universe is not an error.
func (r *Registry) Warm(ctx context.Context) {
	for _, exchange := range r.exchanges {
		symbols, err := r.store.GetUniverse(ctx, exchange)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				r.log.WithError(err).WithField("exchange", exchange).Warn("universe warm load failed")
			}
			continue
		}
		r.mu.Lock()
		r.snapshot[exchange] = symbols
		r.mu.Unlock()
	}
}

// Update replaces the universe for one exchange, persisting it and
// refreshing the snapshot. Called by the background refresher.
func (r *Registry) Update(ctx context.Context, exchange string, symbols []market.SymbolInfo) error {
	if err := r.store.PutUniverse(ctx, exchange, symbols); err != nil {
		return err
	}
	r.mu.Lock()
	r.snapshot[exchange] = symbols
	r.mu.Unlock()
	return nil
}

// Resolve returns the (exchange, symbol) set eligible for a scan. The read
// is snapshot-only. Exchanges with no cached universe contribute the static
// fallback pairs. The userID parameter reserves room for per-user connected
// exchange filtering; an empty value means all configured exchanges.
func (r *Registry) Resolve(userID string) []market.SymbolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []market.SymbolInfo
	for _, exchange := range r.exchanges {
		symbols, ok := r.snapshot[exchange]
		if !ok || len(symbols) == 0 {
			for _, pair := range fallbackPairs {
				result = append(result, market.SymbolInfo{
					Exchange: exchange,
					Symbol:   pair,
					Tier:     market.TierHigh,
				})
			}
			continue
		}
		result = append(result, symbols...)
	}
	return result
}

// Exchanges lists the exchanges the registry covers.
func (r *Registry) Exchanges() []string {
	out := make([]string, len(r.exchanges))
	copy(out, r.exchanges)
	return out
}
