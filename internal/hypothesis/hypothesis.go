// Package hypothesis implements the confidence engine at the center of an
// investigation: a falsifiable statement about an incident's cause with a
// tracked confidence score, weighted evidence aggregation, a status state
// machine that protects the audit trail, and a sanitized audit export.
package hypothesis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/refutehq/refute/internal/tracing"
)

// Status is the lifecycle state of a hypothesis.
type Status string

const (
	// StatusGenerated means the hypothesis was created but not yet tested.
	StatusGenerated Status = "GENERATED"
	// StatusValidating means evidence and disproof attempts are being gathered.
	StatusValidating Status = "VALIDATING"
	// StatusValidated means the caller accepted the hypothesis. Terminal.
	StatusValidated Status = "VALIDATED"
	// StatusDisproven means a disproof attempt failed the hypothesis. Terminal.
	StatusDisproven Status = "DISPROVEN"
	// StatusRejected means the caller withdrew the hypothesis. Terminal.
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further mutation is allowed in this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusValidated, StatusDisproven, StatusRejected:
		return true
	}
	return false
}

// Confidence formula constants. The score is recomputed from scratch on every
// mutation rather than incrementally, so the weights hold for any history.
const (
	// InitialWeight is the share of the score owned by the generating agent's
	// prior.
	InitialWeight = 0.3
	// EvidenceWeight is the share of the score owned by gathered evidence.
	EvidenceWeight = 0.7
	// BonusPerSurvival is credited for each disproof attempt the hypothesis
	// survived.
	BonusPerSurvival = 0.05
	// MaxSurvivalBonus caps the total survival credit so repeated weak
	// attempts cannot drive confidence arbitrarily high.
	MaxSurvivalBonus = 0.3
)

// Hypothesis is the mutable aggregate of an investigation. All mutation goes
// through AddEvidence, AddDisproofAttempt, MarkValidated and Reject, which
// hold an exclusive lock around the whole read-compute-write sequence.
// Readers get consistent snapshots, never partially-updated state.
type Hypothesis struct {
	mu sync.Mutex

	id                  string
	agentID             string
	statement           string
	initialConfidence   float64
	currentConfidence   float64
	status              Status
	supporting          []Evidence
	contradicting       []Evidence
	disproofAttempts    []DisproofAttempt
	confidenceReasoning string
	affectedSystems     []string
	metadata            map[string]string
	createdAt           time.Time

	observer tracing.Observer
}

// Option configures a hypothesis at construction time.
type Option func(*Hypothesis)

// WithObserver wires an observability sink into the engine. Defaults to the
// no-op observer.
func WithObserver(obs tracing.Observer) Option {
	return func(h *Hypothesis) {
		if obs != nil {
			h.observer = obs
		}
	}
}

// WithAffectedSystems records which systems the hypothesis concerns.
func WithAffectedSystems(systems ...string) Option {
	return func(h *Hypothesis) {
		h.affectedSystems = append(h.affectedSystems, systems...)
	}
}

// WithMetadata attaches claim metadata used by disproof strategies
// (claimed cause time, scope descriptor, metric thresholds).
func WithMetadata(md map[string]string) Option {
	return func(h *Hypothesis) {
		for k, v := range md {
			h.metadata[k] = v
		}
	}
}

// New constructs a hypothesis in status GENERATED with the statement and the
// generating agent's initial confidence.
func New(agentID, statement string, initialConfidence float64, opts ...Option) (*Hypothesis, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, &ValidationError{Field: "agent_id", Message: "agent ID is required for audit attribution"}
	}
	if strings.TrimSpace(statement) == "" {
		return nil, &ValidationError{Field: "statement", Message: "statement is required"}
	}
	if initialConfidence < 0 || initialConfidence > 1 {
		return nil, &ValidationError{Field: "initial_confidence", Message: "initial confidence must be between 0.0 and 1.0"}
	}

	h := &Hypothesis{
		id:                uuid.NewString(),
		agentID:           agentID,
		statement:         statement,
		initialConfidence: initialConfidence,
		currentConfidence: initialConfidence,
		status:            StatusGenerated,
		metadata:          make(map[string]string),
		createdAt:         time.Now().UTC(),
		observer:          tracing.Noop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.confidenceReasoning = h.buildReasoning()
	return h, nil
}

// ID returns the hypothesis identifier.
func (h *Hypothesis) ID() string {
	return h.id
}

// AgentID returns the generating agent's identifier.
func (h *Hypothesis) AgentID() string {
	return h.agentID
}

// Statement returns the falsifiable claim.
func (h *Hypothesis) Statement() string {
	return h.statement
}

// Status returns the current lifecycle state.
func (h *Hypothesis) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// CurrentConfidence returns the current confidence score.
func (h *Hypothesis) CurrentConfidence() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentConfidence
}

// InitialConfidence returns the generating agent's prior.
func (h *Hypothesis) InitialConfidence() float64 {
	return h.initialConfidence
}

// Metadata returns a copy of the claim metadata.
func (h *Hypothesis) Metadata() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	md := make(map[string]string, len(h.metadata))
	for k, v := range h.metadata {
		md[k] = v
	}
	return md
}

// MetadataValue looks up a single claim metadata key.
func (h *Hypothesis) MetadataValue(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.metadata[key]
	return v, ok
}

// SetMetadataValue records a claim metadata key. Fails on terminal status:
// claims must not change under a settled verdict.
func (h *Hypothesis) SetMetadataValue(key, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "set metadata"}
	}
	h.metadata[key] = value
	return nil
}

// AddEvidence validates and appends one observation, then recomputes
// confidence and the reasoning string. Fails with a StateError when the
// hypothesis is terminal.
func (h *Hypothesis) AddEvidence(ev Evidence) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "add evidence"}
	}

	_, span := h.observer.StartSpan(context.Background(), "hypothesis.add_evidence",
		tracing.String("hypothesis_id", h.id),
		tracing.String("quality", string(ev.Quality)),
		tracing.Bool("supports", ev.SupportsHypothesis),
	)
	defer span.End()

	if h.status == StatusGenerated {
		h.status = StatusValidating
	}

	if ev.SupportsHypothesis {
		h.supporting = append(h.supporting, ev)
	} else {
		h.contradicting = append(h.contradicting, ev)
	}

	h.recalculate()
	span.SetAttr(tracing.Float64("confidence", h.currentConfidence))
	return nil
}

// AddDisproofAttempt records one falsification trial. A FAILED outcome
// transitions the hypothesis to DISPROVEN and zeroes confidence
// unconditionally; the attempt's evidence is still kept for audit. SURVIVED
// and INCONCLUSIVE outcomes append and recompute, with survival credit only
// for SURVIVED. Fails with a StateError when the hypothesis is terminal.
func (h *Hypothesis) AddDisproofAttempt(attempt DisproofAttempt) error {
	if err := attempt.Validate(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "add disproof attempt"}
	}

	_, span := h.observer.StartSpan(context.Background(), "hypothesis.add_disproof_attempt",
		tracing.String("hypothesis_id", h.id),
		tracing.String("strategy", attempt.StrategyName),
		tracing.String("outcome", string(attempt.Outcome)),
	)
	defer span.End()

	if h.status == StatusGenerated {
		h.status = StatusValidating
	}

	if attempt.ExecutedAt.IsZero() {
		attempt.ExecutedAt = time.Now().UTC()
	} else {
		attempt.ExecutedAt = attempt.ExecutedAt.UTC()
	}

	h.disproofAttempts = append(h.disproofAttempts, attempt)

	if attempt.Outcome == OutcomeFailed {
		h.status = StatusDisproven
		h.currentConfidence = 0
		h.confidenceReasoning = h.buildReasoning()
		span.SetAttr(tracing.Float64("confidence", 0))
		return nil
	}

	h.recalculate()
	span.SetAttr(tracing.Float64("confidence", h.currentConfidence))
	return nil
}

// MarkValidated is the caller's decision that the hypothesis cleared its
// confidence bar with no successful disproof. Terminal.
func (h *Hypothesis) MarkValidated() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "mark validated"}
	}
	h.status = StatusValidated
	return nil
}

// Reject withdraws the hypothesis, e.g. when superseded by a better one.
// Terminal. The reason is kept in the claim metadata for the audit trail.
func (h *Hypothesis) Reject(reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status.Terminal() {
		return &StateError{HypothesisID: h.id, Status: h.status, Operation: "reject"}
	}
	h.status = StatusRejected
	if reason != "" {
		h.metadata["rejection_reason"] = reason
	}
	return nil
}

// Snapshot is a consistent read-only copy of the hypothesis state.
type Snapshot struct {
	ID                  string
	AgentID             string
	Statement           string
	InitialConfidence   float64
	CurrentConfidence   float64
	Status              Status
	Supporting          []Evidence
	Contradicting       []Evidence
	DisproofAttempts    []DisproofAttempt
	ConfidenceReasoning string
	AffectedSystems     []string
	Metadata            map[string]string
	CreatedAt           time.Time
}

// Snapshot returns a copy of the full state taken under the lock.
func (h *Hypothesis) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	md := make(map[string]string, len(h.metadata))
	for k, v := range h.metadata {
		md[k] = v
	}

	return Snapshot{
		ID:                  h.id,
		AgentID:             h.agentID,
		Statement:           h.statement,
		InitialConfidence:   h.initialConfidence,
		CurrentConfidence:   h.currentConfidence,
		Status:              h.status,
		Supporting:          append([]Evidence(nil), h.supporting...),
		Contradicting:       append([]Evidence(nil), h.contradicting...),
		DisproofAttempts:    append([]DisproofAttempt(nil), h.disproofAttempts...),
		ConfidenceReasoning: h.confidenceReasoning,
		AffectedSystems:     append([]string(nil), h.affectedSystems...),
		Metadata:            md,
		CreatedAt:           h.createdAt,
	}
}
