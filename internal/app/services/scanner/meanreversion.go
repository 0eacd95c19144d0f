package scanner

import (
	"math"

	"github.com/google/uuid"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// MeanReversionConfig tunes the mean-reversion strategy.
type MeanReversionConfig struct {
	WindowSize      int
	MinObservations int
	// MinDeviationPct is the fractional deviation from the window mean that
	// counts as stretched, e.g. 0.015 for 1.5%.
	MinDeviationPct float64
}

// DefaultMeanReversionConfig returns production defaults.
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		WindowSize:      30,
		MinObservations: 5,
		MinDeviationPct: 0.015,
	}
}

// MeanReversion signals a return to the mean when price is stretched away
// from its rolling average: buy below the mean, sell above it.
type MeanReversion struct {
	config MeanReversionConfig
	window *window
}

// NewMeanReversion creates the mean-reversion scanner.
func NewMeanReversion(config MeanReversionConfig) *MeanReversion {
	if config.WindowSize <= 0 {
		config = DefaultMeanReversionConfig()
	}
	if config.MinObservations < 3 {
		config.MinObservations = 3
	}
	return &MeanReversion{
		config: config,
		window: newWindow(config.WindowSize),
	}
}

func (m *MeanReversion) ID() string { return "mean_reversion" }

func (m *MeanReversion) Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error) {
	var out []opportunity.Opportunity
	for _, quote := range prices {
		series := m.window.push(seriesKey(quote.Exchange, quote.Symbol), quote.Price, quote.FetchedAt)
		if len(series) < m.config.MinObservations {
			continue
		}

		mean := seriesMean(series)
		if mean <= 0 {
			continue
		}
		deviation := (quote.Price - mean) / mean
		if math.Abs(deviation) < m.config.MinDeviationPct {
			continue
		}

		side := opportunity.SideBuy
		if deviation > 0 {
			side = opportunity.SideSell
		}

		strength := math.Abs(deviation) / m.config.MinDeviationPct
		notional := ctx.Sizing()
		out = append(out, opportunity.Opportunity{
			ID:              uuid.NewString(),
			StrategyID:      m.ID(),
			Symbol:          quote.Symbol,
			Exchange:        quote.Exchange,
			Side:            side,
			ConfidenceScore: clamp01(0.35 + 0.2*strength),
			Risk:            opportunity.RiskMedium,
			RequiredCapital: notional,
			ExpectedProfit:  notional * math.Abs(deviation),
			EntryPrice:      quote.Price,
			ExitPrice:       mean,
			Metadata: map[string]interface{}{
				"window_mean":   mean,
				"deviation_pct": deviation * 100,
			},
			DiscoveredAt: ctx.At(),
		})
	}
	return out, nil
}
