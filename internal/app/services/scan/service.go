// Package scan orchestrates opportunity discovery: it fans fetches and
// strategy runs out across goroutines under a hard wall-clock budget and
// leaves progress pollable in the session store at every step.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/scan"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/metrics"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/exchange"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/scanner"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/universe"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/storage"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/system"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

// ErrNotReady is returned when results are requested for a scan that is
// still running.
var ErrNotReady = errors.New("scan: results not ready")

// maxBudget caps the configurable scan budget so no scan is ever unbounded.
const maxBudget = 150 * time.Second

// PriceFetcher resolves quotes for scan units. The exchange client pool
// implements it; tests substitute fakes.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, exchangeName, symbol string) (market.PriceQuote, error)
}

// Config tunes the orchestrator.
type Config struct {
	// Budget is the wall-clock allowance per scan. Bounded by maxBudget.
	Budget time.Duration
	// SessionTTL is how long finished sessions stay pollable.
	SessionTTL time.Duration
	// Notional is the capital basis handed to scanners.
	Notional float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Budget:     90 * time.Second,
		SessionTTL: 30 * time.Minute,
		Notional:   1000,
	}
}

var _ system.Service = (*Service)(nil)

// Service is the scan orchestrator. StartScan returns as soon as the
// session exists; the scan body runs detached and is supervised only by
// its deadline.
type Service struct {
	config   Config
	store    storage.SessionStore
	universe *universe.Registry
	scanners *scanner.Registry
	fetcher  PriceFetcher
	log      *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs the orchestrator.
func New(config Config, store storage.SessionStore, reg *universe.Registry, scanners *scanner.Registry, fetcher PriceFetcher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("scan")
	}
	if config.Budget <= 0 {
		config.Budget = DefaultConfig().Budget
	}
	if config.Budget > maxBudget {
		config.Budget = maxBudget
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultConfig().SessionTTL
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:   config,
		store:    store,
		universe: reg,
		scanners: scanners,
		fetcher:  fetcher,
		log:      log,
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
}

func (s *Service) Name() string { return "scan-orchestrator" }

func (s *Service) Start(_ context.Context) error { return nil }

// Stop cancels in-flight scans and waits for their goroutines to drain.
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartScan creates a session and schedules the scan in the background.
// It returns sub-second: the only blocking work is the initial session
// write. A store failure here is the one error that prevents a scan.
func (s *Service) StartScan(ctx context.Context, userID string, opts scan.Options) (scan.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return scan.Session{}, fmt.Errorf("user_id is required")
	}

	strategies, err := s.selectScanners(opts)
	if err != nil {
		return scan.Session{}, err
	}

	now := time.Now().UTC()
	session := scan.Session{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          scan.StatusInitiated,
		StrategiesTotal: len(strategies),
		Skipped:         make(map[string]int),
		StartedAt:       now,
		Deadline:        now.Add(s.config.Budget),
	}

	if err := s.store.PutSession(ctx, session, s.config.SessionTTL); err != nil {
		return scan.Session{}, fmt.Errorf("create scan session: %w", err)
	}

	metrics.RecordScanStarted()
	s.wg.Add(1)
	go s.run(session, opts, strategies)

	return session, nil
}

// GetStatus returns a session snapshot. It is a pure store read and never
// blocks on in-flight scan work. Partial results are ranked at read time.
func (s *Service) GetStatus(ctx context.Context, scanID string) (scan.Session, error) {
	session, err := s.store.GetSession(ctx, scanID)
	if err != nil {
		return scan.Session{}, err
	}
	opportunity.Rank(session.Opportunities)
	return session, nil
}

// GetResults returns the ranked opportunity list for a finished scan.
// While the scan is still running it returns ErrNotReady; the caller polls.
// Failed sessions come back with their session so the caller can surface
// the failure reason.
func (s *Service) GetResults(ctx context.Context, scanID string) (scan.Session, error) {
	session, err := s.store.GetSession(ctx, scanID)
	if err != nil {
		return scan.Session{}, err
	}
	if !session.Terminal() {
		return session, ErrNotReady
	}
	opportunity.Rank(session.Opportunities)
	return session, nil
}

// selectScanners applies the strategy filter against the registry.
func (s *Service) selectScanners(opts scan.Options) ([]scanner.Scanner, error) {
	if len(opts.Strategies) == 0 {
		return s.scanners.List(), nil
	}
	var out []scanner.Scanner
	for _, id := range opts.Strategies {
		sc, ok := s.scanners.Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown strategy %q", id)
		}
		out = append(out, sc)
	}
	return out, nil
}

type scannerResult struct {
	strategyID    string
	opportunities []opportunity.Opportunity
	err           error
}

// run executes the scan body. It owns the session exclusively: every
// mutation happens on this goroutine, with readers served snapshots from
// the store.
func (s *Service) run(session scan.Session, opts scan.Options, strategies []scanner.Scanner) {
	defer s.wg.Done()

	ctx, cancel := context.WithDeadline(s.baseCtx, session.Deadline)
	defer cancel()

	log := s.log.WithField("scan_id", session.ID).WithField("user_id", session.UserID)

	session.Status = scan.StatusScanning
	if !s.persist(ctx, &session, log) {
		return
	}

	prices := s.collectPrices(ctx, &session, opts, log)

	scanCtx := scanner.Context{
		UserID:   session.UserID,
		Now:      time.Now().UTC(),
		Notional: s.config.Notional,
	}

	// Buffered so scanners finishing after the deadline can still send and
	// exit; their results are simply never collected.
	results := make(chan scannerResult, len(strategies))
	for _, sc := range strategies {
		go func(sc scanner.Scanner) {
			found, err := sc.Scan(scanCtx, prices)
			results <- scannerResult{strategyID: sc.ID(), opportunities: found, err: err}
		}(sc)
	}

	for completed := 0; completed < len(strategies); completed++ {
		select {
		case res := <-results:
			session.StrategiesCompleted++
			if res.err != nil {
				// One broken strategy never fails the scan.
				session.Skipped[scan.SkipStrategyError]++
				log.WithError(res.err).WithField("strategy", res.strategyID).Warn("strategy scan failed")
			} else {
				accepted := s.filterRisk(res.opportunities, opts.RiskTolerance)
				session.Opportunities = append(session.Opportunities, accepted...)
				metrics.RecordOpportunities(res.strategyID, len(accepted))
			}
			if !s.persist(ctx, &session, log) {
				return
			}
		case <-ctx.Done():
			// Deadline reached: conclude with whatever has been gathered.
			// Timeout is an expected partial outcome, not an error.
			s.complete(&session, log)
			return
		}
	}

	s.complete(&session, log)
}

// collectPrices resolves quotes for every eligible (exchange, symbol) unit
// with bounded-concurrency fetches. A slice of the budget is reserved so
// strategies always get some time even when fetching runs long.
func (s *Service) collectPrices(ctx context.Context, session *scan.Session, opts scan.Options, log *logger.Logger) []market.PriceQuote {
	units := s.filterUnits(s.universe.Resolve(session.UserID), opts)
	if len(units) == 0 {
		return nil
	}

	fetchCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		reserve := time.Until(deadline) / 5
		if reserve > time.Second {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithDeadline(ctx, deadline.Add(-reserve))
			defer cancel()
		}
	}

	var (
		mu      sync.Mutex
		prices  []market.PriceQuote
		skipped = map[string]int{}
		wg      sync.WaitGroup
	)

	for _, unit := range units {
		wg.Add(1)
		go func(unit market.SymbolInfo) {
			defer wg.Done()
			quote, err := s.fetcher.FetchPrice(fetchCtx, unit.Exchange, unit.Symbol)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				prices = append(prices, quote)
			case errors.Is(err, exchange.ErrRateLimited):
				skipped[scan.SkipRateLimited]++
			default:
				skipped[scan.SkipUnavailable]++
			}
		}(unit)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
	case <-fetchCtx.Done():
		// Abandon outstanding fetches; anything they return later is
		// discarded with the scan's quote set already snapshotted below.
	}

	mu.Lock()
	defer mu.Unlock()
	for reason, n := range skipped {
		session.Skipped[reason] += n
	}
	log.WithField("units", len(units)).
		WithField("quotes", len(prices)).
		Info("price collection finished")

	out := make([]market.PriceQuote, len(prices))
	copy(out, prices)
	return out
}

// filterUnits applies exchange and symbol filters from the scan options.
func (s *Service) filterUnits(units []market.SymbolInfo, opts scan.Options) []market.SymbolInfo {
	if len(opts.Exchanges) == 0 && len(opts.Symbols) == 0 {
		return units
	}

	exchanges := toSet(opts.Exchanges)
	symbols := toSet(opts.Symbols)

	var out []market.SymbolInfo
	for _, unit := range units {
		if len(exchanges) > 0 && !exchanges[strings.ToLower(unit.Exchange)] {
			continue
		}
		if len(symbols) > 0 && !symbols[strings.ToLower(unit.Symbol)] {
			continue
		}
		out = append(out, unit)
	}
	return out
}

// filterRisk drops opportunities above the caller's risk tolerance.
func (s *Service) filterRisk(list []opportunity.Opportunity, tolerance opportunity.RiskLevel) []opportunity.Opportunity {
	if tolerance == "" {
		return list
	}
	ceiling := tolerance.Rank()
	var out []opportunity.Opportunity
	for _, opp := range list {
		if opp.Risk.Rank() <= ceiling {
			out = append(out, opp)
		}
	}
	return out
}

// complete finalises the session. Reaching the deadline is a successful
// partial outcome; only store failures mark a session failed.
func (s *Service) complete(session *scan.Session, log *logger.Logger) {
	session.Status = scan.StatusComplete
	session.CompletedAt = time.Now().UTC()

	// The deadline context may already be done; finalisation gets its own
	// short grace window so the terminal state is persisted.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.PutSession(ctx, *session, s.config.SessionTTL); err != nil {
		s.fail(session, err, log)
		return
	}

	metrics.RecordScanFinished(string(scan.StatusComplete), session.CompletedAt.Sub(session.StartedAt))
	log.WithField("opportunities", len(session.Opportunities)).
		WithField("strategies_completed", session.StrategiesCompleted).
		Info("scan complete")
}

// persist writes session progress. A write refused because the scan's own
// deadline or shutdown fired is not a store fault: the session concludes
// with whatever was gathered. Any other store failure fails the scan; this
// is the only path that does.
func (s *Service) persist(ctx context.Context, session *scan.Session, log *logger.Logger) bool {
	if err := s.store.PutSession(ctx, *session, s.config.SessionTTL); err != nil {
		if ctx.Err() != nil {
			s.complete(session, log)
		} else {
			s.fail(session, err, log)
		}
		return false
	}
	return true
}

func (s *Service) fail(session *scan.Session, cause error, log *logger.Logger) {
	session.Status = scan.StatusFailed
	session.Error = cause.Error()
	session.CompletedAt = time.Now().UTC()

	// The caller's context may already be done, so the terminal write gets
	// its own grace window. Best effort: if the store is down this write
	// fails too and the session expires from view on its own.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.PutSession(ctx, *session, s.config.SessionTTL); err != nil {
		log.WithError(err).Error("persist failed session")
	}

	metrics.RecordScanFinished(string(scan.StatusFailed), session.CompletedAt.Sub(session.StartedAt))
	log.WithError(cause).Error("scan failed")
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}
