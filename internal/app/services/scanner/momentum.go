package scanner

import (
	"math"

	"github.com/google/uuid"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// MomentumConfig tunes the momentum strategy.
type MomentumConfig struct {
	// WindowSize is how many observations to keep per symbol.
	WindowSize int
	// MinObservations is the minimum series length before signalling.
	MinObservations int
	// MinChangePct is the fractional move across the window that counts as
	// momentum, e.g. 0.02 for 2%.
	MinChangePct float64
}

// DefaultMomentumConfig returns production defaults.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		WindowSize:      20,
		MinObservations: 3,
		MinChangePct:    0.02,
	}
}

// Momentum signals continuation when a symbol has moved consistently in one
// direction across its observation window.
type Momentum struct {
	config MomentumConfig
	window *window
}

// NewMomentum creates the momentum scanner.
func NewMomentum(config MomentumConfig) *Momentum {
	if config.WindowSize <= 0 {
		config = DefaultMomentumConfig()
	}
	if config.MinObservations < 2 {
		config.MinObservations = 2
	}
	return &Momentum{
		config: config,
		window: newWindow(config.WindowSize),
	}
}

func (m *Momentum) ID() string { return "momentum" }

func (m *Momentum) Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error) {
	var out []opportunity.Opportunity
	for _, quote := range prices {
		series := m.window.push(seriesKey(quote.Exchange, quote.Symbol), quote.Price, quote.FetchedAt)
		if len(series) < m.config.MinObservations {
			continue
		}

		first := series[0].price
		if first <= 0 {
			continue
		}
		change := (quote.Price - first) / first
		if math.Abs(change) < m.config.MinChangePct {
			continue
		}

		side := opportunity.SideBuy
		if change < 0 {
			side = opportunity.SideSell
		}

		strength := math.Abs(change) / m.config.MinChangePct
		risk := opportunity.RiskMedium
		if strength >= 3 {
			// Chasing an extended move is the riskier entry.
			risk = opportunity.RiskHigh
		}

		notional := ctx.Sizing()
		out = append(out, opportunity.Opportunity{
			ID:              uuid.NewString(),
			StrategyID:      m.ID(),
			Symbol:          quote.Symbol,
			Exchange:        quote.Exchange,
			Side:            side,
			ConfidenceScore: clamp01(0.4 + 0.2*strength),
			Risk:            risk,
			RequiredCapital: notional,
			ExpectedProfit:  notional * math.Abs(change) * 0.5,
			EntryPrice:      quote.Price,
			Metadata: map[string]interface{}{
				"window_change_pct": change * 100,
				"observations":      len(series),
			},
			DiscoveredAt: ctx.At(),
		})
	}
	return out, nil
}
