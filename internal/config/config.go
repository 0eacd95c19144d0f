// Package config loads engine configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/services/exchange"
)

// SymbolConfig declares one tradable pair in an exchange's configured
// universe.
type SymbolConfig struct {
	Symbol string `yaml:"symbol"`
	Tier   string `yaml:"tier"`
}

// Config holds all application configuration.
type Config struct {
	HTTP struct {
		Addr            string `yaml:"addr" env:"HTTP_ADDR"`
		ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
	} `yaml:"http"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Scan struct {
		BudgetSec     int     `yaml:"budget_seconds"`
		SessionTTLMin int     `yaml:"session_ttl_minutes"`
		Notional      float64 `yaml:"notional"`
	} `yaml:"scan"`

	Breaker struct {
		FailureThreshold int `yaml:"failure_threshold"`
		CooldownSec      int `yaml:"cooldown_seconds"`
	} `yaml:"breaker"`

	Universe struct {
		Schedule string                    `yaml:"schedule"`
		Symbols  map[string][]SymbolConfig `yaml:"symbols"`
	} `yaml:"universe"`

	Exchanges []exchange.EndpointConfig `yaml:"exchanges"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; the engine can
// run entirely from defaults and environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Scan.BudgetSec <= 0 {
		c.Scan.BudgetSec = 90
	}
	if c.Scan.SessionTTLMin <= 0 {
		c.Scan.SessionTTLMin = 30
	}
	if c.Scan.Notional <= 0 {
		c.Scan.Notional = 1000
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.CooldownSec <= 0 {
		c.Breaker.CooldownSec = 30
	}
	if c.Universe.Schedule == "" {
		c.Universe.Schedule = "@every 5m"
	}
	if len(c.Exchanges) == 0 {
		c.Exchanges = defaultExchanges()
	}
}

// Validate checks invariants the engine cannot default its way around.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, ep := range c.Exchanges {
		if ep.Name == "" {
			return fmt.Errorf("exchange name is required")
		}
		if seen[ep.Name] {
			return fmt.Errorf("duplicate exchange %q", ep.Name)
		}
		seen[ep.Name] = true
		if ep.BaseURL == "" {
			return fmt.Errorf("exchange %s: base_url is required", ep.Name)
		}
		if ep.TickerPath == "" {
			return fmt.Errorf("exchange %s: ticker_path is required", ep.Name)
		}
		if ep.PricePath == "" {
			return fmt.Errorf("exchange %s: price_path is required", ep.Name)
		}
	}
	for exchangeName := range c.Universe.Symbols {
		if !seen[exchangeName] {
			return fmt.Errorf("universe references unknown exchange %q", exchangeName)
		}
	}
	return nil
}

// ScanBudget returns the scan wall-clock budget.
func (c *Config) ScanBudget() time.Duration {
	return time.Duration(c.Scan.BudgetSec) * time.Second
}

// SessionTTL returns the retention window for finished scan sessions.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Scan.SessionTTLMin) * time.Minute
}

// BreakerCooldown returns the open-state cooldown for exchange breakers.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSec) * time.Second
}

// UniverseSymbols converts the configured universe into domain symbol
// infos, defaulting unknown tiers to medium.
func (c *Config) UniverseSymbols() map[string][]market.SymbolInfo {
	out := make(map[string][]market.SymbolInfo, len(c.Universe.Symbols))
	for exchangeName, symbols := range c.Universe.Symbols {
		infos := make([]market.SymbolInfo, 0, len(symbols))
		for _, s := range symbols {
			tier := market.VolumeTier(s.Tier)
			switch tier {
			case market.TierHigh, market.TierMedium, market.TierLow:
			default:
				tier = market.TierMedium
			}
			infos = append(infos, market.SymbolInfo{
				Exchange: exchangeName,
				Symbol:   s.Symbol,
				Tier:     tier,
			})
		}
		out[exchangeName] = infos
	}
	return out
}

// defaultExchanges covers the major public spot venues out of the box.
func defaultExchanges() []exchange.EndpointConfig {
	return []exchange.EndpointConfig{
		{
			Name:              "binance",
			BaseURL:           "https://api.binance.com",
			TickerPath:        "/api/v3/ticker/24hr?symbol={symbol}",
			SymbolFormat:      "{base}{quote}",
			PricePath:         "lastPrice",
			VolumePath:        "quoteVolume",
			RequestsPerMinute: 1200,
			Burst:             20,
		},
		{
			Name:              "kraken",
			BaseURL:           "https://api.kraken.com",
			TickerPath:        "/0/public/Ticker?pair={symbol}",
			SymbolFormat:      "{base}{quote}",
			PricePath:         "result.*.c.0",
			VolumePath:        "result.*.v.1",
			RequestsPerMinute: 60,
			Burst:             5,
		},
		{
			Name:              "coinbase",
			BaseURL:           "https://api.exchange.coinbase.com",
			TickerPath:        "/products/{symbol}/ticker",
			SymbolFormat:      "{base}-{quote}",
			PricePath:         "price",
			VolumePath:        "volume",
			RequestsPerMinute: 600,
			Burst:             10,
		},
	}
}
