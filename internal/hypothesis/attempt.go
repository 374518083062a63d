package hypothesis

import (
	"fmt"
	"strings"
	"time"
)

// DisproofOutcome is the verdict of one falsification trial.
// It is deliberately not a boolean: absent or ambiguous telemetry is common,
// and treating it as either survival or failure would corrupt the audit trail.
type DisproofOutcome string

const (
	// OutcomeSurvived means the hypothesis was tested and not contradicted.
	OutcomeSurvived DisproofOutcome = "SURVIVED"
	// OutcomeFailed means the telemetry contradicts the hypothesis.
	OutcomeFailed DisproofOutcome = "FAILED"
	// OutcomeInconclusive means the trial could not determine either way.
	OutcomeInconclusive DisproofOutcome = "INCONCLUSIVE"
)

// Valid reports whether o is one of the defined outcomes.
func (o DisproofOutcome) Valid() bool {
	switch o {
	case OutcomeSurvived, OutcomeFailed, OutcomeInconclusive:
		return true
	}
	return false
}

// DisproofAttempt records one falsification trial against a hypothesis.
type DisproofAttempt struct {
	// StrategyName identifies the strategy that ran the trial.
	StrategyName string `json:"strategy_name"`

	// Method is a free-text description of what was tested and how.
	Method string `json:"method"`

	// Outcome is the verdict of the trial.
	Outcome DisproofOutcome `json:"outcome"`

	// Evidence gathered during the trial. Every attempt carries at least one
	// record describing what was queried and what came back, so the audit
	// trail always shows the basis of the verdict.
	Evidence []Evidence `json:"evidence"`

	// Cost is the resource cost incurred by the trial (query seconds).
	// The core reports it; budget enforcement is the caller's concern.
	Cost float64 `json:"cost"`

	// ExecutedAt is when the trial completed, normalized to UTC.
	ExecutedAt time.Time `json:"executed_at"`
}

// Validate checks the attempt invariants before it is recorded.
func (a DisproofAttempt) Validate() error {
	if strings.TrimSpace(a.StrategyName) == "" {
		return &ValidationError{Field: "strategy_name", Message: "strategy name is required"}
	}
	if strings.TrimSpace(a.Method) == "" {
		return &ValidationError{Field: "method", Message: "method description is required"}
	}
	if !a.Outcome.Valid() {
		return &ValidationError{Field: "outcome", Message: "unknown disproof outcome: " + string(a.Outcome)}
	}
	if a.Cost < 0 {
		return &ValidationError{Field: "cost", Message: "cost cannot be negative"}
	}
	for i, ev := range a.Evidence {
		if err := ev.Validate(); err != nil {
			return &ValidationError{Field: "evidence", Message: fmt.Sprintf("attempt evidence at index %d invalid: %v", i, err)}
		}
	}
	return nil
}
