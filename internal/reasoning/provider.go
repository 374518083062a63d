// Package reasoning defines the boundary to the language model that proposes
// the initial hypothesis. The engine only consumes the proposal (statement,
// confidence, claim metadata); how it was produced is the provider's concern.
package reasoning

import (
	"context"
	"fmt"
)

// Observations is what the investigating agent knows when asking for a
// hypothesis.
type Observations struct {
	// Description is the free-text incident summary.
	Description string `json:"description"`

	// AffectedSystems lists the systems showing symptoms.
	AffectedSystems []string `json:"affected_systems,omitempty"`

	// Symptoms are individual observed anomalies ("error rate spiked at 10:03").
	Symptoms []string `json:"symptoms,omitempty"`

	// RecentChanges are deploys/config updates near the incident window.
	RecentChanges []string `json:"recent_changes,omitempty"`
}

// Proposal is a candidate hypothesis from the provider. The metadata carries
// the provider's falsifiable claims under the disproof metadata keys so
// strategies can test them.
type Proposal struct {
	Statement       string            `json:"statement"`
	Confidence      float64           `json:"confidence"`
	AffectedSystems []string          `json:"affected_systems,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Validate checks the proposal is usable as hypothesis input.
func (p *Proposal) Validate() error {
	if p.Statement == "" {
		return fmt.Errorf("proposal statement is empty")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("proposal confidence %.2f outside [0,1]", p.Confidence)
	}
	return nil
}

// Provider produces an initial hypothesis from incident observations.
type Provider interface {
	// ProposeHypothesis returns a falsifiable statement with a calibrated
	// initial confidence.
	ProposeHypothesis(ctx context.Context, obs Observations) (*Proposal, error)

	// Name identifies the provider for audit attribution.
	Name() string
}
