package hypothesis

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Evidence is a single observation bearing on a hypothesis.
// Once validated it is immutable: it is only ever appended to a hypothesis,
// never edited in place. Retraction, if ever needed, is modeled as an
// explicit removal rather than a mutation.
type Evidence struct {
	// ID uniquely identifies this observation.
	ID string `json:"id"`

	// Timestamp is when the observation was made, normalized to UTC.
	Timestamp time.Time `json:"timestamp"`

	// Source identifies where the observation came from
	// (e.g. "telemetry:payments-api/error_rate", "strategy:temporal_contradiction").
	Source string `json:"source"`

	// Quality grades how directly the observation bears on the claim.
	Quality EvidenceQuality `json:"quality"`

	// Confidence is how certain the observer is of the observation itself, in [0,1].
	Confidence float64 `json:"confidence"`

	// SupportsHypothesis partitions evidence into supporting and contradicting.
	SupportsHypothesis bool `json:"supports_hypothesis"`

	// Interpretation explains what the observation means for the claim.
	Interpretation string `json:"interpretation"`

	// Data is the opaque raw payload backing the observation. May be large;
	// the audit serializer previews it rather than embedding it whole.
	Data string `json:"data,omitempty"`
}

// NewEvidence builds a validated Evidence record with a fresh ID and the
// timestamp normalized to UTC.
func NewEvidence(source string, quality EvidenceQuality, confidence float64, supports bool, interpretation string, observedAt time.Time) (Evidence, error) {
	ev := Evidence{
		ID:                 uuid.NewString(),
		Timestamp:          observedAt.UTC(),
		Source:             source,
		Quality:            quality,
		Confidence:         confidence,
		SupportsHypothesis: supports,
		Interpretation:     interpretation,
	}
	if err := ev.Validate(); err != nil {
		return Evidence{}, err
	}
	return ev, nil
}

// Validate checks the evidence invariants. It is called on construction and
// again by Hypothesis.AddEvidence so externally built records cannot bypass it.
func (e Evidence) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Message: "evidence ID is required"}
	}
	if strings.TrimSpace(e.Source) == "" {
		return &ValidationError{Field: "source", Message: "source must be a non-empty identifier"}
	}
	if !e.Quality.Valid() {
		return &ValidationError{Field: "quality", Message: "unknown evidence quality tier: " + string(e.Quality)}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Message: "confidence must be between 0.0 and 1.0"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	if e.Timestamp.Location() != time.UTC {
		return &ValidationError{Field: "timestamp", Message: "timestamp must be normalized to UTC"}
	}
	return nil
}

// WeightedConfidence is the evidence's contribution to the confidence score:
// quality weight times observation confidence.
func (e Evidence) WeightedConfidence() float64 {
	return e.Quality.Weight() * e.Confidence
}
