package scanner

import (
	"testing"
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

func TestVolatilityBreakout_UpsideBreak(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewVolatilityBreakout(VolatilityConfig{WindowSize: 10, MinObservations: 5, BandWidth: 2.0})

	// Prior series has mean 100 and stddev ~1.41; 110 clears the upper band.
	found := feed(t, scanner, base, []float64{100, 102, 98, 100, 110})
	if len(found) != 1 {
		t.Fatalf("expected one signal, got %d", len(found))
	}
	opp := found[0]
	if opp.Side != opportunity.SideBuy {
		t.Fatalf("upside break should signal buy, got %s", opp.Side)
	}
	if opp.Risk != opportunity.RiskVeryHigh {
		t.Fatalf("a break this far past the band should be very high risk, got %s", opp.Risk)
	}
}

func TestVolatilityBreakout_DownsideBreak(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewVolatilityBreakout(VolatilityConfig{WindowSize: 10, MinObservations: 5, BandWidth: 2.0})

	found := feed(t, scanner, base, []float64{100, 102, 98, 100, 90})
	if len(found) != 1 {
		t.Fatalf("expected one signal, got %d", len(found))
	}
	if found[0].Side != opportunity.SideSell {
		t.Fatalf("downside break should signal sell, got %s", found[0].Side)
	}
}

func TestVolatilityBreakout_InsideBandQuiet(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scanner := NewVolatilityBreakout(VolatilityConfig{WindowSize: 10, MinObservations: 5, BandWidth: 2.0})

	found := feed(t, scanner, base, []float64{100, 102, 98, 100, 101})
	if len(found) != 0 {
		t.Fatalf("price inside the band must not signal, got %d", len(found))
	}
}

func TestWindow_IgnoresReplayedQuotes(t *testing.T) {
	w := newWindow(5)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	w.push("binance|BTC/USDT", 100, base)
	series := w.push("binance|BTC/USDT", 200, base)
	if len(series) != 1 || series[0].price != 100 {
		t.Fatalf("replayed timestamp should be ignored, got %v", series)
	}

	series = w.push("binance|BTC/USDT", 200, base.Add(time.Second))
	if len(series) != 2 {
		t.Fatalf("expected series of 2, got %d", len(series))
	}
}

func TestWindow_TrimsToSize(t *testing.T) {
	w := newWindow(3)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var series []observation
	for i := 0; i < 5; i++ {
		series = w.push("k", float64(i), base.Add(time.Duration(i)*time.Second))
	}
	if len(series) != 3 {
		t.Fatalf("expected window of 3, got %d", len(series))
	}
	if series[0].price != 2 {
		t.Fatalf("expected oldest retained price 2, got %v", series[0].price)
	}
}

func TestRegistry_DefaultStrategies(t *testing.T) {
	reg := DefaultRegistry()
	want := []string{"arbitrage", "mean_reversion", "momentum", "volatility_breakout"}
	got := reg.IDs()
	if len(got) != len(want) {
		t.Fatalf("expected %d strategies, got %v", len(want), got)
	}
	for i, id := range want {
		if got[i] != id {
			t.Fatalf("expected %s at %d, got %s", id, i, got[i])
		}
	}
	if err := reg.Register(NewArbitrage(DefaultArbitrageConfig())); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
}
