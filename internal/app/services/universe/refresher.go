package universe

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/system"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Source discovers the tradable symbols for one exchange.
type Source interface {
	Discover(ctx context.Context, exchange string) ([]market.SymbolInfo, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, exchange string) ([]market.SymbolInfo, error)

func (f SourceFunc) Discover(ctx context.Context, exchange string) ([]market.SymbolInfo, error) {
	return f(ctx, exchange)
}

// TierObserver receives tier metadata from refreshed universes. The price
// cache implements this to apply tiered TTLs.
type TierObserver interface {
	UpdateTiers(symbols []market.SymbolInfo)
}

// Refresher updates the symbol universe on a fixed cron schedule, fully
// decoupled from the scan request path.
type Refresher struct {
	registry *Registry
	source   Source
	observer TierObserver
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewRefresher creates a lifecycle-managed universe refresher.
func NewRefresher(registry *Registry, source Source, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("universe-refresher")
	}
	return &Refresher{
		registry: registry,
		source:   source,
		schedule: "@every 5m",
		log:      log,
	}
}

// WithSchedule overrides the refresh schedule (cron spec or @every form).
func (r *Refresher) WithSchedule(schedule string) *Refresher {
	if schedule != "" {
		r.schedule = schedule
	}
	return r
}

// WithTierObserver forwards refreshed tier metadata to the observer.
func (r *Refresher) WithTierObserver(observer TierObserver) *Refresher {
	r.observer = observer
	return r
}

func (r *Refresher) Name() string { return "universe-refresher" }

// Start performs one immediate refresh and schedules periodic ones.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { r.refresh(context.Background()) }); err != nil {
		r.mu.Unlock()
		return err
	}
	r.cron = c
	r.running = true
	r.mu.Unlock()

	go r.refresh(ctx)
	c.Start()

	r.log.WithField("schedule", r.schedule).Info("universe refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	r.running = false
	r.cron = nil
	r.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("universe refresher stopped")
	return nil
}

func (r *Refresher) refresh(ctx context.Context) {
	if r.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, exchange := range r.registry.Exchanges() {
		symbols, err := r.source.Discover(ctx, exchange)
		if err != nil {
			// Keep serving the last good universe for this exchange.
			r.log.WithError(err).WithField("exchange", exchange).Warn("universe discovery failed")
			continue
		}
		if err := r.registry.Update(ctx, exchange, symbols); err != nil {
			r.log.WithError(err).WithField("exchange", exchange).Warn("universe persist failed")
			continue
		}
		if r.observer != nil {
			r.observer.UpdateTiers(symbols)
		}
		r.log.WithField("exchange", exchange).
			WithField("symbols", len(symbols)).
			Info("universe refreshed")
	}
}

// StaticSource serves a fixed symbol list per exchange, typically loaded
// from configuration.
type StaticSource struct {
	Symbols map[string][]market.SymbolInfo
}

func (s StaticSource) Discover(_ context.Context, exchange string) ([]market.SymbolInfo, error) {
	return s.Symbols[exchange], nil
}
