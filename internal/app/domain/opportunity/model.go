// Package opportunity defines the candidate-trade records produced by
// strategy scanners.
package opportunity

import (
	"sort"
	"time"
)

// Side is the recommended action for an opportunity.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	SideHold Side = "hold"
)

// RiskLevel classifies how aggressive an opportunity is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// Rank orders risk levels from conservative to aggressive so callers can
// compare against a tolerance ceiling. Unknown levels rank above very_high.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskVeryHigh:
		return 3
	default:
		return 4
	}
}

// Opportunity is one candidate trade surfaced by a strategy scanner.
// Records are immutable once emitted.
type Opportunity struct {
	ID              string                 `json:"id"`
	StrategyID      string                 `json:"strategy_id"`
	Symbol          string                 `json:"symbol"`
	Exchange        string                 `json:"exchange"`
	Side            Side                   `json:"side"`
	ConfidenceScore float64                `json:"confidence_score"`
	Risk            RiskLevel              `json:"risk_level"`
	RequiredCapital float64                `json:"required_capital"`
	ExpectedProfit  float64                `json:"expected_profit"`
	EntryPrice      float64                `json:"entry_price"`
	ExitPrice       float64                `json:"exit_price,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	DiscoveredAt    time.Time              `json:"discovered_at"`
}

// Rank sorts opportunities best-first: confidence descending, then expected
// profit descending, then discovery time ascending. The final key keeps the
// ordering deterministic for identical inputs.
func Rank(list []Opportunity) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ConfidenceScore != list[j].ConfidenceScore {
			return list[i].ConfidenceScore > list[j].ConfidenceScore
		}
		if list[i].ExpectedProfit != list[j].ExpectedProfit {
			return list[i].ExpectedProfit > list[j].ExpectedProfit
		}
		return list[i].DiscoveredAt.Before(list[j].DiscoveredAt)
	})
}
