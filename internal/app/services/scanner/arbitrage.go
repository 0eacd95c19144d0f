package scanner

import (
	"sort"

	"github.com/google/uuid"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// ArbitrageConfig tunes the cross-exchange arbitrage strategy.
type ArbitrageConfig struct {
	// MinSpreadPct is the minimum net fractional spread to signal, e.g.
	// 0.01 for 1%.
	MinSpreadPct float64
	// FeePct is the estimated taker fee per leg, subtracted twice from the
	// gross spread.
	FeePct float64
}

// DefaultArbitrageConfig returns production defaults.
func DefaultArbitrageConfig() ArbitrageConfig {
	return ArbitrageConfig{
		MinSpreadPct: 0.01,
		FeePct:       0.001,
	}
}

// Arbitrage detects price divergence for the same symbol across exchanges:
// buy on the cheapest venue, sell on the dearest. It needs quotes from at
// least two exchanges per symbol and emits at most one opportunity per
// symbol per scan.
type Arbitrage struct {
	config ArbitrageConfig
}

// NewArbitrage creates the arbitrage scanner.
func NewArbitrage(config ArbitrageConfig) *Arbitrage {
	if config.MinSpreadPct <= 0 {
		config.MinSpreadPct = DefaultArbitrageConfig().MinSpreadPct
	}
	return &Arbitrage{config: config}
}

func (a *Arbitrage) ID() string { return "arbitrage" }

func (a *Arbitrage) Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error) {
	bySymbol := make(map[string][]market.PriceQuote)
	for _, quote := range prices {
		bySymbol[quote.Symbol] = append(bySymbol[quote.Symbol], quote)
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var out []opportunity.Opportunity
	for _, symbol := range symbols {
		quotes := bySymbol[symbol]
		if len(quotes) < 2 {
			continue
		}

		low, high := quotes[0], quotes[0]
		for _, q := range quotes[1:] {
			if q.Price < low.Price {
				low = q
			}
			if q.Price > high.Price {
				high = q
			}
		}
		if low.Exchange == high.Exchange || low.Price <= 0 {
			continue
		}

		gross := (high.Price - low.Price) / low.Price
		net := gross - 2*a.config.FeePct
		if net < a.config.MinSpreadPct {
			continue
		}

		notional := ctx.Sizing()
		out = append(out, opportunity.Opportunity{
			ID:              uuid.NewString(),
			StrategyID:      a.ID(),
			Symbol:          symbol,
			Exchange:        low.Exchange,
			Side:            opportunity.SideBuy,
			ConfidenceScore: clamp01(0.6 + 10*net),
			Risk:            opportunity.RiskLow,
			RequiredCapital: notional,
			ExpectedProfit:  notional * net,
			EntryPrice:      low.Price,
			ExitPrice:       high.Price,
			Metadata: map[string]interface{}{
				"sell_exchange":    high.Exchange,
				"gross_spread_pct": gross * 100,
				"net_spread_pct":   net * 100,
			},
			DiscoveredAt: ctx.At(),
		})
	}
	return out, nil
}
