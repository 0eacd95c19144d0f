package app

import (
	"context"
	"fmt"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/exchange"
	marketsvc "github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/market"
	scansvc "github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/scanner"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/universe"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage/memory"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/system"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/config"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Sessions storage.SessionStore
	Universe storage.UniverseStore
}

// Application ties the scan engine's services together and manages their
// lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Scans    *scansvc.Service
	Universe *universe.Registry
	Pool     *exchange.Pool
	Cache    *marketsvc.Cache
}

// New builds a fully initialised application from configuration and the
// provided stores.
func New(cfg *config.Config, stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if cfg == nil {
		var err error
		cfg, err = config.Load("")
		if err != nil {
			return nil, err
		}
	}

	mem := memory.New()
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Universe == nil {
		stores.Universe = mem
	}

	manager := system.NewManager()

	cache := marketsvc.NewCache(marketsvc.DefaultCacheConfig())

	pool := exchange.NewPool(exchange.PoolConfig{
		Endpoints: cfg.Exchanges,
		Breaker: exchange.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.BreakerCooldown(),
		},
	}, cache, log.WithField("component", "exchange-pool"))

	exchanges := make([]string, 0, len(cfg.Exchanges))
	for _, ep := range cfg.Exchanges {
		exchanges = append(exchanges, ep.Name)
	}

	registry := universe.NewRegistry(stores.Universe, exchanges, log.WithField("component", "universe"))

	source := universe.StaticSource{Symbols: cfg.UniverseSymbols()}
	refresher := universe.NewRefresher(registry, source, log.WithField("component", "universe-refresher")).
		WithSchedule(cfg.Universe.Schedule).
		WithTierObserver(cache)

	scanners := scanner.DefaultRegistry()

	scanService := scansvc.New(scansvc.Config{
		Budget:     cfg.ScanBudget(),
		SessionTTL: cfg.SessionTTL(),
		Notional:   cfg.Scan.Notional,
	}, stores.Sessions, registry, scanners, pool, log.WithField("component", "scan"))

	for _, svc := range []system.Service{refresher, scanService} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Scans:    scanService,
		Universe: registry,
		Pool:     pool,
		Cache:    cache,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start warms the universe snapshot and begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	a.Universe.Warm(ctx)
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
