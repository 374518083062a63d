package hypothesis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordShape(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6,
		WithAffectedSystems("checkout-api"),
		WithMetadata(map[string]string{"claimed_scope": "MOST"}),
	)
	require.NoError(t, err)
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 0.9, true)))
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityWeak, 0.4, false)))
	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "scope_verification",
		Method:       "compared claimed and observed affected share",
		Outcome:      OutcomeSurvived,
		Evidence:     []Evidence{mustEvidence(t, QualityDirect, 0.9, true)},
		Cost:         1.2,
	}))

	record := h.ToAuditLog()

	assert.Equal(t, h.ID(), record.ID)
	assert.Equal(t, "agent-1", record.AgentID)
	assert.Equal(t, StatusValidating, record.Status)
	assert.Equal(t, 0.6, record.Confidence.Initial)
	assert.Equal(t, h.CurrentConfidence(), record.Confidence.Current)
	assert.Len(t, record.Evidence, 2, "supporting and contradicting evidence both itemized")
	require.Len(t, record.DisproofAttempts, 1)
	assert.Len(t, record.DisproofAttempts[0].Evidence, 1)
	assert.Equal(t, 1.2, record.DisproofAttempts[0].Cost)
	assert.Equal(t, []string{"checkout-api"}, record.AffectedSystems)
	assert.Equal(t, "MOST", record.Metadata["claimed_scope"])
	assert.False(t, record.ExportedAt.IsZero())
}

func TestAuditRecountMatchesScore(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 0.9, true)))
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityIndirect, 0.5, true)))
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityCorroborated, 0.7, false)))

	record := h.ToAuditLog()

	// A reader must be able to recompute the evidence score from the record.
	sum := 0.0
	for _, ev := range record.Evidence {
		contribution := ev.Quality.Weight() * ev.Confidence
		if ev.SupportsHypothesis {
			sum += contribution
		} else {
			sum -= contribution
		}
	}
	score := sum / float64(len(record.Evidence))
	want := 0.6*InitialWeight + score*EvidenceWeight
	assert.InDelta(t, want, record.Confidence.Current, 1e-9)
}

func TestAuditPayloadPreviewBounds(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	payload := strings.Repeat("x", 1000)
	ev := mustEvidence(t, QualityDirect, 0.9, true)
	ev.Data = payload
	require.NoError(t, h.AddEvidence(ev))

	record := h.ToAuditLogWithPreview(100)
	require.Len(t, record.Evidence, 1)
	got := record.Evidence[0]

	assert.Len(t, got.DataPreview, 100)
	assert.True(t, got.DataTruncated)
	assert.Equal(t, 1000, got.DataBytes)

	// The evidence value itself keeps the full payload.
	assert.Len(t, h.Snapshot().Supporting[0].Data, 1000)
}

func TestAuditSmallPayloadNotTruncated(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	ev := mustEvidence(t, QualityDirect, 0.9, true)
	ev.Data = `{"observed": 42}`
	require.NoError(t, h.AddEvidence(ev))

	record := h.ToAuditLog()
	got := record.Evidence[0]
	assert.Equal(t, `{"observed": 42}`, got.DataPreview)
	assert.False(t, got.DataTruncated)
	assert.Equal(t, len(ev.Data), got.DataBytes)
}

func TestAuditFlagsSecrets(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	ev := mustEvidence(t, QualityDirect, 0.9, true)
	ev.Data = `request failed with api_key=sk-live-0123456789abcdef status 500`
	require.NoError(t, h.AddEvidence(ev))

	record := h.ToAuditLog()
	got := record.Evidence[0]

	assert.True(t, got.SecretFlagged)
	assert.NotContains(t, got.DataPreview, "sk-live-0123456789abcdef")
	assert.Contains(t, got.DataPreview, "[FLAGGED-SECRET]", "secrets are marked, never silently dropped")
}

func TestAuditStripsControlCharacters(t *testing.T) {
	h, err := New("agent-1", "deploy broke \x1b[31mcheckout\x07", 0.6)
	require.NoError(t, err)

	ev := mustEvidence(t, QualityDirect, 0.9, true)
	ev.Interpretation = "line one\nline\ttwo\x00garbage"
	require.NoError(t, h.AddEvidence(ev))

	record := h.ToAuditLog()
	assert.Equal(t, "deploy broke [31mcheckout", record.Statement)
	assert.Equal(t, "line one\nline\ttwo"+"garbage", record.Evidence[0].Interpretation)
}

func TestAuditRecordSerializes(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 0.9, true)))

	data, err := json.Marshal(h.ToAuditLog())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"id", "agentId", "statement", "status", "confidence", "reasoning", "evidence", "disproofAttempts", "createdAt", "exportedAt"} {
		assert.Contains(t, decoded, key)
	}
}

func TestAuditDisprovenRecord(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.9)
	require.NoError(t, err)
	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "temporal_contradiction",
		Method:       "anomaly predates the claimed cause",
		Outcome:      OutcomeFailed,
		Evidence:     []Evidence{mustEvidence(t, QualityDirect, 0.9, false)},
		ExecutedAt:   time.Now(),
	}))

	record := h.ToAuditLog()
	assert.Equal(t, StatusDisproven, record.Status)
	assert.Zero(t, record.Confidence.Current)
	require.Len(t, record.DisproofAttempts, 1)
	assert.Equal(t, OutcomeFailed, record.DisproofAttempts[0].Outcome)
}
