// Package scanner defines the pluggable strategy scanners that turn price
// sets into trading opportunities. Scanners are isolated from cache and
// network failure modes: the orchestrator hands them quotes, they emit
// opportunities, nothing else.
package scanner

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// Context carries per-scan inputs beyond the price set.
type Context struct {
	// UserID identifies the requesting user; informational for metadata.
	UserID string
	// Now is the scan's notion of current time. Scanners stamp
	// DiscoveredAt from it so ordering is deterministic under test.
	Now time.Time
	// Notional is the capital basis used to size RequiredCapital and
	// ExpectedProfit.
	Notional float64
}

// At returns the context time, falling back to the wall clock.
func (c Context) At() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

// Sizing returns the notional with a default applied.
func (c Context) Sizing() float64 {
	if c.Notional <= 0 {
		return 1000
	}
	return c.Notional
}

// Scanner is one opportunity-discovery strategy. Scan must not touch the
// network or shared caches; it sees only the quotes it is handed. New
// strategies are added by implementing this interface and registering it,
// never by modifying the orchestrator.
type Scanner interface {
	ID() string
	Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error)
}

type funcScanner struct {
	id string
	fn func(Context, []market.PriceQuote) ([]opportunity.Opportunity, error)
}

func (f funcScanner) ID() string { return f.id }

func (f funcScanner) Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error) {
	return f.fn(ctx, prices)
}

// Func adapts a function to the Scanner interface.
func Func(id string, fn func(Context, []market.PriceQuote) ([]opportunity.Opportunity, error)) Scanner {
	return funcScanner{id: id, fn: fn}
}

// Registry holds the scanners resolved at startup.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[string]Scanner)}
}

// Register adds a scanner. Duplicate IDs are an error.
func (r *Registry) Register(s Scanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := s.ID()
	if _, exists := r.scanners[id]; exists {
		return fmt.Errorf("scanner %q already registered", id)
	}
	r.scanners[id] = s
	r.order = append(r.order, id)
	return nil
}

// Get returns a scanner by ID.
func (r *Registry) Get(id string) (Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[id]
	return s, ok
}

// List returns all scanners in registration order.
func (r *Registry) List() []Scanner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Scanner, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.scanners[id])
	}
	return out
}

// IDs returns the registered scanner IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(NewMomentum(DefaultMomentumConfig()))
	_ = r.Register(NewMeanReversion(DefaultMeanReversionConfig()))
	_ = r.Register(NewArbitrage(DefaultArbitrageConfig()))
	_ = r.Register(NewVolatilityBreakout(DefaultVolatilityConfig()))
	return r
}
