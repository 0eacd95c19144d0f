// Package scan defines scan sessions: the pollable state of one bounded
// opportunity-discovery run.
package scan

import (
	"time"

	"github.com/voicebootix/CryptoUniverse-sub010/internal/app/domain/opportunity"
)

// Status is the lifecycle state of a scan session.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusScanning  Status = "scanning"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Skip reasons surfaced in the session's aggregate counters.
const (
	SkipRateLimited   = "rate_limited"
	SkipUnavailable   = "exchange_unavailable"
	SkipNoData        = "no_data"
	SkipStrategyError = "strategy_error"
)

// Options narrows the scope of a scan. Empty filters mean "everything
// eligible". RiskTolerance caps the risk level of returned opportunities.
type Options struct {
	Symbols       []string              `json:"symbols,omitempty"`
	Strategies    []string              `json:"strategies,omitempty"`
	Exchanges     []string              `json:"exchanges,omitempty"`
	RiskTolerance opportunity.RiskLevel `json:"risk_tolerance,omitempty"`
}

// Session is the persisted state of one scan. It is created when a scan
// starts, mutated only by the orchestrator goroutine that owns it, and
// terminal once Status is complete or failed. Opportunities only ever grow.
type Session struct {
	ID                  string                    `json:"scan_id"`
	UserID              string                    `json:"user_id"`
	Status              Status                    `json:"status"`
	StrategiesTotal     int                       `json:"strategies_total"`
	StrategiesCompleted int                       `json:"strategies_completed"`
	Opportunities       []opportunity.Opportunity `json:"opportunities"`
	Skipped             map[string]int            `json:"skipped,omitempty"`
	StartedAt           time.Time                 `json:"started_at"`
	Deadline            time.Time                 `json:"deadline"`
	CompletedAt         time.Time                 `json:"completed_at,omitempty"`
	Error               string                    `json:"error,omitempty"`
}

// Terminal reports whether the session has reached a final state.
func (s Session) Terminal() bool {
	return s.Status == StatusComplete || s.Status == StatusFailed
}

// Clone returns a deep copy so readers never alias the orchestrator's
// working session.
func (s Session) Clone() Session {
	out := s
	if s.Opportunities != nil {
		out.Opportunities = make([]opportunity.Opportunity, len(s.Opportunities))
		copy(out.Opportunities, s.Opportunities)
	}
	if s.Skipped != nil {
		out.Skipped = make(map[string]int, len(s.Skipped))
		for k, v := range s.Skipped {
			out.Skipped[k] = v
		}
	}
	return out
}
