package exchange

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/metrics"
	marketsvc "github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/market"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

// PoolConfig configures the client pool.
type PoolConfig struct {
	Endpoints []EndpointConfig
	// CallTimeout bounds each outbound ticker request.
	CallTimeout time.Duration
	// DefaultLimit applies to exchanges without an explicit rate budget.
	DefaultLimit LimitConfig
	// Breaker applies to every exchange.
	Breaker BreakerConfig
	// DefaultMaxInFlight caps concurrent fetches per exchange when the
	// endpoint does not set its own cap.
	DefaultMaxInFlight int
}

// Pool owns one long-lived client, circuit breaker and fetch semaphore per
// exchange, plus the shared rate limiter and price cache. It is a
// process-wide singleton: breakers and budgets are properties of the
// exchange connection, not of any one user's scan.
type Pool struct {
	clients  map[string]*Client
	breakers map[string]*Breaker
	sems     map[string]chan struct{}
	limiter  *RateLimiter
	cache    *marketsvc.Cache

	callTimeout time.Duration
	log         *logger.Logger
}

// NewPool builds the pool from endpoint configuration. All exchanges share
// one pooled HTTP transport.
func NewPool(config PoolConfig, cache *marketsvc.Cache, log *logger.Logger) *Pool {
	if log == nil {
		log = logger.NewDefault("exchange-pool")
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 4 * time.Second
	}
	if config.DefaultMaxInFlight <= 0 {
		config.DefaultMaxInFlight = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
	httpClient := &http.Client{Transport: transport}

	limiter := NewRateLimiter(config.DefaultLimit)

	p := &Pool{
		clients:     make(map[string]*Client),
		breakers:    make(map[string]*Breaker),
		sems:        make(map[string]chan struct{}),
		limiter:     limiter,
		cache:       cache,
		callTimeout: config.CallTimeout,
		log:         log,
	}

	for _, ep := range config.Endpoints {
		name := ep.Name
		p.clients[name] = NewClient(ep, httpClient, log.WithField("exchange", name))

		breakerCfg := config.Breaker
		breakerCfg.OnStateChange = func(from, to BreakerState) {
			metrics.SetBreakerState(name, int(to))
			log.WithField("exchange", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("circuit breaker state change")
		}
		p.breakers[name] = NewBreaker(breakerCfg)

		p.limiter.Configure(name, LimitConfig{RequestsPerMinute: ep.RequestsPerMinute, Burst: ep.Burst})

		inFlight := ep.MaxInFlight
		if inFlight <= 0 {
			inFlight = config.DefaultMaxInFlight
		}
		p.sems[name] = make(chan struct{}, inFlight)
	}

	return p
}

// Exchanges lists the configured exchange names.
func (p *Pool) Exchanges() []string {
	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BreakerState reports the circuit state for one exchange.
func (p *Pool) BreakerState(exchange string) BreakerState {
	if b, ok := p.breakers[exchange]; ok {
		return b.State()
	}
	return BreakerClosed
}

// FetchPrice resolves a quote for (exchange, symbol): cache first, then a
// rate-limited, breaker-guarded network fetch. On a denied token or open
// circuit a stale-but-usable cached quote is returned instead; with nothing
// cached the typed failure comes back and the caller skips the unit.
func (p *Pool) FetchPrice(ctx context.Context, exchangeName, symbol string) (market.PriceQuote, error) {
	client, ok := p.clients[exchangeName]
	if !ok {
		return market.PriceQuote{}, fmt.Errorf("%w: unknown exchange %s", ErrUnavailable, exchangeName)
	}

	quote, fresh, cached := p.cache.Get(exchangeName, symbol)
	if cached && fresh {
		metrics.RecordCacheLookup("hit")
		return quote, nil
	}

	// Coalesce concurrent misses for the same unit: only the leader goes to
	// the network, followers wait for its result.
	done, leader := p.cache.BeginFetch(exchangeName, symbol)
	if !leader {
		select {
		case <-done:
		case <-ctx.Done():
			return market.PriceQuote{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		if quote, _, ok := p.cache.Get(exchangeName, symbol); ok {
			return quote, nil
		}
		return market.PriceQuote{}, fmt.Errorf("%w: coalesced fetch failed for %s %s", ErrUnavailable, exchangeName, symbol)
	}
	defer p.cache.EndFetch(exchangeName, symbol)

	if !p.limiter.Acquire(exchangeName) {
		metrics.RecordFetch(exchangeName, "rate_limited")
		if cached {
			p.logStale(exchangeName, symbol, quote)
			return quote, nil
		}
		metrics.RecordCacheLookup("miss")
		return market.PriceQuote{}, ErrRateLimited
	}

	breaker := p.breakers[exchangeName]
	if err := breaker.Allow(); err != nil {
		metrics.RecordFetch(exchangeName, "breaker_open")
		if cached {
			p.logStale(exchangeName, symbol, quote)
			return quote, nil
		}
		metrics.RecordCacheLookup("miss")
		return market.PriceQuote{}, fmt.Errorf("%w: circuit open for %s", ErrUnavailable, exchangeName)
	}

	fetched, err := p.fetch(ctx, client, exchangeName, symbol)
	if err != nil {
		// A call abandoned because the scan itself was cancelled or hit its
		// deadline says nothing about the exchange's health.
		if ctx.Err() != nil {
			breaker.RecordCancel()
			metrics.RecordFetch(exchangeName, "cancelled")
		} else {
			breaker.RecordFailure()
			metrics.RecordFetch(exchangeName, "error")
		}
		if cached {
			p.logStale(exchangeName, symbol, quote)
			return quote, nil
		}
		metrics.RecordCacheLookup("miss")
		return market.PriceQuote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	breaker.RecordSuccess()
	metrics.RecordFetch(exchangeName, "success")
	p.cache.Put(fetched)
	return fetched, nil
}

func (p *Pool) fetch(ctx context.Context, client *Client, exchangeName, symbol string) (market.PriceQuote, error) {
	sem := p.sems[exchangeName]
	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-ctx.Done():
		return market.PriceQuote{}, ctx.Err()
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	return client.FetchTicker(callCtx, symbol)
}

// logStale records that a scanner will run against data older than its
// preferred TTL. Informational, not an error.
func (p *Pool) logStale(exchangeName, symbol string, quote market.PriceQuote) {
	metrics.RecordCacheLookup("stale")
	p.log.WithField("exchange", exchangeName).
		WithField("symbol", symbol).
		WithField("age", time.Since(quote.FetchedAt).String()).
		Info("stale quote used")
}
