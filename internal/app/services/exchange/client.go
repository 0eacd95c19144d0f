package exchange

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/pkg/logger"
)

const maxTickerBody = 1 << 20

// EndpointConfig describes one exchange's public ticker endpoint. Response
// shapes differ per exchange, so the price and volume fields are addressed
// with gjson paths instead of per-exchange structs.
type EndpointConfig struct {
	Name              string `yaml:"name"`
	BaseURL           string `yaml:"base_url"`
	TickerPath        string `yaml:"ticker_path"`
	SymbolFormat      string `yaml:"symbol_format"`
	PricePath         string `yaml:"price_path"`
	VolumePath        string `yaml:"volume_path"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
	MaxInFlight       int    `yaml:"max_in_flight"`
}

// Client fetches public market data from one exchange. Clients are
// long-lived and reused across all scans; the underlying transport keeps
// idle connections per host so no per-call setup cost is paid.
type Client struct {
	name       string
	config     EndpointConfig
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a client for one exchange endpoint. A nil httpClient
// gets a pooled default.
func NewClient(config EndpointConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		}
	}
	if log == nil {
		log = logger.NewDefault("exchange-client")
	}
	return &Client{
		name:       config.Name,
		config:     config,
		httpClient: httpClient,
		log:        log,
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string { return c.name }

// FetchTicker retrieves the current price and 24h volume for a symbol.
// The caller bounds the call with a per-call timeout on ctx.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (market.PriceQuote, error) {
	url := c.config.BaseURL + strings.ReplaceAll(c.config.TickerPath, "{symbol}", c.formatSymbol(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.PriceQuote{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return market.PriceQuote{}, fmt.Errorf("ticker request %s %s: %w", c.name, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return market.PriceQuote{}, fmt.Errorf("ticker request %s %s: status %d", c.name, symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTickerBody))
	if err != nil {
		return market.PriceQuote{}, fmt.Errorf("read ticker body: %w", err)
	}

	price := gjson.GetBytes(body, c.config.PricePath)
	if !price.Exists() || price.Float() <= 0 {
		return market.PriceQuote{}, fmt.Errorf("ticker %s %s: no price at %q", c.name, symbol, c.config.PricePath)
	}

	quote := market.PriceQuote{
		Exchange:  c.name,
		Symbol:    symbol,
		Price:     price.Float(),
		FetchedAt: time.Now().UTC(),
	}
	if c.config.VolumePath != "" {
		quote.Volume24h = gjson.GetBytes(body, c.config.VolumePath).Float()
	}
	return quote, nil
}

// formatSymbol renders the engine's canonical "BASE/QUOTE" form into the
// exchange's native pair format, e.g. "{base}{quote}" -> BTCUSDT or
// "{base}-{quote}" -> BTC-USDT.
func (c *Client) formatSymbol(symbol string) string {
	format := c.config.SymbolFormat
	if format == "" {
		format = "{base}{quote}"
	}
	base, quote := symbol, ""
	if idx := strings.Index(symbol, "/"); idx >= 0 {
		base, quote = symbol[:idx], symbol[idx+1:]
	}
	out := strings.ReplaceAll(format, "{base}", base)
	return strings.ReplaceAll(out, "{quote}", quote)
}
