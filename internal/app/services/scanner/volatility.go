package scanner

import (
	"math"

	"github.com/google/uuid"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/market"
	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// VolatilityConfig tunes the volatility-breakout strategy.
type VolatilityConfig struct {
	WindowSize      int
	MinObservations int
	// BandWidth is the number of standard deviations around the window mean
	// that defines the breakout band.
	BandWidth float64
}

// DefaultVolatilityConfig returns production defaults.
func DefaultVolatilityConfig() VolatilityConfig {
	return VolatilityConfig{
		WindowSize:      30,
		MinObservations: 5,
		BandWidth:       2.0,
	}
}

// VolatilityBreakout signals when price escapes its recent volatility band:
// an upside breakout is a buy, a downside break a sell. Breakout entries
// carry elevated risk.
type VolatilityBreakout struct {
	config VolatilityConfig
	window *window
}

// NewVolatilityBreakout creates the volatility-breakout scanner.
func NewVolatilityBreakout(config VolatilityConfig) *VolatilityBreakout {
	if config.WindowSize <= 0 {
		config = DefaultVolatilityConfig()
	}
	if config.MinObservations < 3 {
		config.MinObservations = 3
	}
	if config.BandWidth <= 0 {
		config.BandWidth = 2.0
	}
	return &VolatilityBreakout{
		config: config,
		window: newWindow(config.WindowSize),
	}
}

func (v *VolatilityBreakout) ID() string { return "volatility_breakout" }

func (v *VolatilityBreakout) Scan(ctx Context, prices []market.PriceQuote) ([]opportunity.Opportunity, error) {
	var out []opportunity.Opportunity
	for _, quote := range prices {
		series := v.window.push(seriesKey(quote.Exchange, quote.Symbol), quote.Price, quote.FetchedAt)
		if len(series) < v.config.MinObservations {
			continue
		}

		// Band is computed over the history excluding the point just pushed,
		// so the current price is judged against prior volatility.
		prior := series[:len(series)-1]
		mean := seriesMean(prior)
		if mean <= 0 {
			continue
		}
		var variance float64
		for _, obs := range prior {
			d := obs.price - mean
			variance += d * d
		}
		stddev := math.Sqrt(variance / float64(len(prior)))
		if stddev <= 0 {
			continue
		}

		upper := mean + v.config.BandWidth*stddev
		lower := mean - v.config.BandWidth*stddev

		var side opportunity.Side
		var breakMagnitude float64
		switch {
		case quote.Price > upper:
			side = opportunity.SideBuy
			breakMagnitude = (quote.Price - upper) / stddev
		case quote.Price < lower:
			side = opportunity.SideSell
			breakMagnitude = (lower - quote.Price) / stddev
		default:
			continue
		}

		risk := opportunity.RiskHigh
		if breakMagnitude >= 1 {
			risk = opportunity.RiskVeryHigh
		}

		notional := ctx.Sizing()
		expectedMove := v.config.BandWidth * stddev / mean
		out = append(out, opportunity.Opportunity{
			ID:              uuid.NewString(),
			StrategyID:      v.ID(),
			Symbol:          quote.Symbol,
			Exchange:        quote.Exchange,
			Side:            side,
			ConfidenceScore: clamp01(0.3 + 0.25*breakMagnitude),
			Risk:            risk,
			RequiredCapital: notional,
			ExpectedProfit:  notional * expectedMove,
			EntryPrice:      quote.Price,
			Metadata: map[string]interface{}{
				"band_upper": upper,
				"band_lower": lower,
				"stddev":     stddev,
			},
			DiscoveredAt: ctx.At(),
		})
	}
	return out, nil
}
