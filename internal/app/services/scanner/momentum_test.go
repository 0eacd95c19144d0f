package scanner

import (
	"testing"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// feed runs successive scans so time-series scanners accumulate history.
func feed(t *testing.T, s Scanner, base time.Time, prices []float64) []opportunity.Opportunity {
	t.Helper()
	var last []opportunity.Opportunity
	for i, price := range prices {
		quote := market.PriceQuote{
			Exchange:  "binance",
			Symbol:    "BTC/USDT",
			Price:     price,
			FetchedAt: base.Add(time.Duration(i) * time.Second),
		}
		found, err := s.Scan(Context{Now: base.Add(time.Duration(i) * time.Second), Notional: 1000}, []market.PriceQuote{quote})
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		last = found
	}
	return last
}

func TestMomentum_UptrendSignalsBuy(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewMomentum(MomentumConfig{WindowSize: 10, MinObservations: 3, MinChangePct: 0.02})

	found := feed(t, scanner, base, []float64{100, 101.5, 103})
	if len(found) != 1 {
		t.Fatalf("expected one signal on a 3%% move, got %d", len(found))
	}
	opp := found[0]
	if opp.Side != opportunity.SideBuy {
		t.Fatalf("uptrend should signal buy, got %s", opp.Side)
	}
	if opp.StrategyID != "momentum" {
		t.Fatalf("unexpected strategy id %s", opp.StrategyID)
	}
	if opp.ConfidenceScore <= 0 || opp.ConfidenceScore > 1 {
		t.Fatalf("confidence out of range: %v", opp.ConfidenceScore)
	}
}

func TestMomentum_DowntrendSignalsSell(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewMomentum(MomentumConfig{WindowSize: 10, MinObservations: 3, MinChangePct: 0.02})

	found := feed(t, scanner, base, []float64{100, 98, 96})
	if len(found) != 1 {
		t.Fatalf("expected one signal on a -4%% move, got %d", len(found))
	}
	if found[0].Side != opportunity.SideSell {
		t.Fatalf("downtrend should signal sell, got %s", found[0].Side)
	}
}

func TestMomentum_FlatMarketQuiet(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewMomentum(MomentumConfig{WindowSize: 10, MinObservations: 3, MinChangePct: 0.02})

	found := feed(t, scanner, base, []float64{100, 100.2, 100.1, 99.9})
	if len(found) != 0 {
		t.Fatalf("flat market must not signal, got %d", len(found))
	}
}

func TestMomentum_InsufficientHistory(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewMomentum(MomentumConfig{WindowSize: 10, MinObservations: 3, MinChangePct: 0.02})

	found := feed(t, scanner, base, []float64{100, 110})
	if len(found) != 0 {
		t.Fatalf("two observations must not signal, got %d", len(found))
	}
}

func TestMomentum_ExtendedMoveRaisesRisk(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewMomentum(MomentumConfig{WindowSize: 10, MinObservations: 3, MinChangePct: 0.02})

	// 8% across the window is 4x the threshold.
	found := feed(t, scanner, base, []float64{100, 104, 108})
	if len(found) != 1 {
		t.Fatalf("expected one signal, got %d", len(found))
	}
	if found[0].Risk != opportunity.RiskHigh {
		t.Fatalf("extended move should be high risk, got %s", found[0].Risk)
	}
}
