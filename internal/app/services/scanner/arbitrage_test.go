package scanner

import (
	"math"
	"testing"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

func TestArbitrage_CrossExchangeSpread(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewArbitrage(ArbitrageConfig{MinSpreadPct: 0.01})

	prices := []market.PriceQuote{
		{Exchange: "kraken", Symbol: "BTC/USDT", Price: 100, FetchedAt: now},
		{Exchange: "binance", Symbol: "BTC/USDT", Price: 103, FetchedAt: now},
	}

	found, err := scanner.Scan(Context{Now: now, Notional: 1000}, prices)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one opportunity, got %d", len(found))
	}

	opp := found[0]
	if opp.Exchange != "kraken" || opp.Side != opportunity.SideBuy {
		t.Fatalf("expected buy on the cheap venue, got %s on %s", opp.Side, opp.Exchange)
	}
	if opp.Metadata["sell_exchange"] != "binance" {
		t.Fatalf("expected sell on binance, got %v", opp.Metadata["sell_exchange"])
	}
	if opp.EntryPrice != 100 || opp.ExitPrice != 103 {
		t.Fatalf("unexpected prices: entry=%v exit=%v", opp.EntryPrice, opp.ExitPrice)
	}

	gross, _ := opp.Metadata["gross_spread_pct"].(float64)
	if math.Abs(gross-3.0) > 1e-9 {
		t.Fatalf("expected 3%% gross spread, got %v", gross)
	}
	if math.Abs(opp.ExpectedProfit-30) > 1e-9 {
		t.Fatalf("expected profit 30 on 1000 notional, got %v", opp.ExpectedProfit)
	}
	if opp.Risk != opportunity.RiskLow {
		t.Fatalf("expected low risk, got %s", opp.Risk)
	}
}

func TestArbitrage_BelowThreshold(t *testing.T) {
	now := time.Now()
	scanner := NewArbitrage(ArbitrageConfig{MinSpreadPct: 0.01})

	prices := []market.PriceQuote{
		{Exchange: "kraken", Symbol: "BTC/USDT", Price: 100, FetchedAt: now},
		{Exchange: "binance", Symbol: "BTC/USDT", Price: 100.5, FetchedAt: now},
	}

	found, err := scanner.Scan(Context{Now: now}, prices)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("0.5%% spread must not signal, got %d", len(found))
	}
}

func TestArbitrage_FeesEatTheSpread(t *testing.T) {
	now := time.Now()
	// 1.2% gross minus 2x1% fees goes negative.
	scanner := NewArbitrage(ArbitrageConfig{MinSpreadPct: 0.001, FeePct: 0.01})

	prices := []market.PriceQuote{
		{Exchange: "kraken", Symbol: "BTC/USDT", Price: 100, FetchedAt: now},
		{Exchange: "binance", Symbol: "BTC/USDT", Price: 101.2, FetchedAt: now},
	}

	found, err := scanner.Scan(Context{Now: now}, prices)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("fee-negative spread must not signal, got %d", len(found))
	}
}

func TestArbitrage_SingleExchangeNoSignal(t *testing.T) {
	now := time.Now()
	scanner := NewArbitrage(DefaultArbitrageConfig())

	prices := []market.PriceQuote{
		{Exchange: "binance", Symbol: "BTC/USDT", Price: 100, FetchedAt: now},
		{Exchange: "binance", Symbol: "ETH/USDT", Price: 3000, FetchedAt: now},
	}

	found, err := scanner.Scan(Context{Now: now}, prices)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("single-venue quotes must not signal, got %d", len(found))
	}
}
