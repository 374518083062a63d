package hypothesis

import (
	"time"
)

// DefaultPayloadPreviewBytes bounds how much of an evidence payload is
// embedded in the audit record. The full payload stays on the Evidence value
// for out-of-band storage; the audit entry carries a labeled preview.
const DefaultPayloadPreviewBytes = 256

// AuditRecord is the stable structured export of a hypothesis's full
// evidentiary and falsification history. Post-mortem generators and
// dashboards depend on this shape; fields are only ever added.
type AuditRecord struct {
	ID              string            `json:"id"`
	AgentID         string            `json:"agentId"`
	Statement       string            `json:"statement"`
	Status          Status            `json:"status"`
	Confidence      AuditConfidence   `json:"confidence"`
	Reasoning       string            `json:"reasoning"`
	Evidence        []AuditEvidence   `json:"evidence"`
	DisproofAttempts []AuditAttempt   `json:"disproofAttempts"`
	AffectedSystems []string          `json:"affectedSystems,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	ExportedAt      time.Time         `json:"exportedAt"`
}

// AuditConfidence carries both ends of the confidence trajectory.
type AuditConfidence struct {
	Initial float64 `json:"initial"`
	Current float64 `json:"current"`
}

// AuditEvidence is one fully itemized evidence entry. The payload is a
// bounded preview with an explicit truncation flag; truncation is never
// silent.
type AuditEvidence struct {
	ID                 string          `json:"id"`
	Timestamp          time.Time       `json:"timestamp"`
	Source             string          `json:"source"`
	Quality            EvidenceQuality `json:"quality"`
	Confidence         float64         `json:"confidence"`
	SupportsHypothesis bool            `json:"supportsHypothesis"`
	Interpretation     string          `json:"interpretation"`
	DataPreview        string          `json:"dataPreview,omitempty"`
	DataTruncated      bool            `json:"dataTruncated"`
	DataBytes          int             `json:"dataBytes"`
	SecretFlagged      bool            `json:"secretFlagged,omitempty"`
}

// AuditAttempt is one fully itemized disproof attempt entry.
type AuditAttempt struct {
	StrategyName string          `json:"strategyName"`
	Method       string          `json:"method"`
	Outcome      DisproofOutcome `json:"outcome"`
	Evidence     []AuditEvidence `json:"evidence"`
	Cost         float64         `json:"cost"`
	ExecutedAt   time.Time       `json:"executedAt"`
}

// ToAuditLog renders the hypothesis into its sanitized, size-bounded audit
// record using the default payload preview bound.
func (h *Hypothesis) ToAuditLog() AuditRecord {
	return h.ToAuditLogWithPreview(DefaultPayloadPreviewBytes)
}

// ToAuditLogWithPreview renders the audit record with an explicit payload
// preview bound. The full evidence list is always included; only payload
// bodies are previewed.
func (h *Hypothesis) ToAuditLogWithPreview(previewBytes int) AuditRecord {
	if previewBytes <= 0 {
		previewBytes = DefaultPayloadPreviewBytes
	}

	snap := h.Snapshot()

	evidence := make([]AuditEvidence, 0, len(snap.Supporting)+len(snap.Contradicting))
	for _, ev := range snap.Supporting {
		evidence = append(evidence, auditEvidence(ev, previewBytes))
	}
	for _, ev := range snap.Contradicting {
		evidence = append(evidence, auditEvidence(ev, previewBytes))
	}

	attempts := make([]AuditAttempt, 0, len(snap.DisproofAttempts))
	for _, a := range snap.DisproofAttempts {
		attemptEvidence := make([]AuditEvidence, 0, len(a.Evidence))
		for _, ev := range a.Evidence {
			attemptEvidence = append(attemptEvidence, auditEvidence(ev, previewBytes))
		}
		method, _ := sanitizeText(a.Method)
		attempts = append(attempts, AuditAttempt{
			StrategyName: a.StrategyName,
			Method:       method,
			Outcome:      a.Outcome,
			Evidence:     attemptEvidence,
			Cost:         a.Cost,
			ExecutedAt:   a.ExecutedAt,
		})
	}

	statement, _ := sanitizeText(snap.Statement)
	reasoning, _ := sanitizeText(snap.ConfidenceReasoning)

	metadata := make(map[string]string, len(snap.Metadata))
	for k, v := range snap.Metadata {
		sv, _ := sanitizeText(v)
		metadata[k] = sv
	}

	return AuditRecord{
		ID:        snap.ID,
		AgentID:   snap.AgentID,
		Statement: statement,
		Status:    snap.Status,
		Confidence: AuditConfidence{
			Initial: snap.InitialConfidence,
			Current: snap.CurrentConfidence,
		},
		Reasoning:        reasoning,
		Evidence:         evidence,
		DisproofAttempts: attempts,
		AffectedSystems:  snap.AffectedSystems,
		Metadata:         metadata,
		CreatedAt:        snap.CreatedAt,
		ExportedAt:       time.Now().UTC(),
	}
}

func auditEvidence(ev Evidence, previewBytes int) AuditEvidence {
	interpretation, interpFlagged := sanitizeText(ev.Interpretation)

	data, dataFlagged := sanitizeText(ev.Data)
	truncated := false
	if len(data) > previewBytes {
		data = data[:previewBytes]
		truncated = true
	}

	return AuditEvidence{
		ID:                 ev.ID,
		Timestamp:          ev.Timestamp,
		Source:             ev.Source,
		Quality:            ev.Quality,
		Confidence:         ev.Confidence,
		SupportsHypothesis: ev.SupportsHypothesis,
		Interpretation:     interpretation,
		DataPreview:        data,
		DataTruncated:      truncated,
		DataBytes:          len(ev.Data),
		SecretFlagged:      interpFlagged || dataFlagged,
	}
}
