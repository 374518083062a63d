package hypothesis

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvidence(t *testing.T, quality EvidenceQuality, confidence float64, supports bool) Evidence {
	t.Helper()
	ev, err := NewEvidence("telemetry:test", quality, confidence, supports, "test observation", time.Now())
	require.NoError(t, err)
	return ev
}

func survivedAttempt(name string) DisproofAttempt {
	return DisproofAttempt{
		StrategyName: name,
		Method:       "checked a falsifiable prediction",
		Outcome:      OutcomeSurvived,
	}
}

func TestConstructionConfidenceEqualsInitial(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0.6, h.CurrentConfidence())
	assert.Equal(t, StatusGenerated, h.Status())
}

func TestRecalculationWithZeroEvidence(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	// An inconclusive attempt triggers a recalculation without contributing
	// evidence or survival credit.
	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "temporal_contradiction",
		Method:       "no usable claim metadata",
		Outcome:      OutcomeInconclusive,
	}))

	assert.InDelta(t, 0.6*InitialWeight, h.CurrentConfidence(), 1e-9)
}

func TestSingleDirectSupportingEvidence(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 0.9, true)))

	// 0.6*0.3 + (1.0*0.9)*0.7 = 0.81
	assert.InDelta(t, 0.81, h.CurrentConfidence(), 1e-9)
	assert.Equal(t, StatusValidating, h.Status())

	require.NoError(t, h.AddDisproofAttempt(survivedAttempt("temporal_contradiction")))
	assert.InDelta(t, 0.86, h.CurrentConfidence(), 1e-9)
}

func TestContradictingEvidenceClampsToZero(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.5)
	require.NoError(t, err)

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 1.0, false)))

	// 0.5*0.3 + (-1.0)*0.7 = -0.55, clamped to 0.
	assert.Zero(t, h.CurrentConfidence())
	// A contradicted hypothesis is not disproven, only deflated.
	assert.Equal(t, StatusValidating, h.Status())
}

func TestEvidenceScoreAveragesMixedEvidence(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.5)
	require.NoError(t, err)

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 1.0, true)))        // +1.0
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityWeak, 0.5, true)))          // +0.05
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityCorroborated, 1.0, false))) // -0.9

	// score = (1.0 + 0.05 - 0.9) / 3 = 0.05
	// confidence = 0.5*0.3 + 0.05*0.7 = 0.185
	assert.InDelta(t, 0.185, h.CurrentConfidence(), 1e-9)
}

func TestSurvivalBonusIsCapped(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.5)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, h.AddDisproofAttempt(survivedAttempt(fmt.Sprintf("strategy_%d", i))))
	}

	// 10 survivals would earn 0.5 uncapped; the cap holds it at 0.3.
	// 0.5*0.3 + 0 + 0.3 = 0.45
	assert.InDelta(t, 0.45, h.CurrentConfidence(), 1e-9)
}

func TestConfidenceClampedAtOne(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 1.0)
	require.NoError(t, err)

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 1.0, true)))
	for i := 0; i < 6; i++ {
		require.NoError(t, h.AddDisproofAttempt(survivedAttempt(fmt.Sprintf("strategy_%d", i))))
	}

	// 1.0*0.3 + 1.0*0.7 + 0.3 = 1.3, clamped to 1.0.
	assert.Equal(t, 1.0, h.CurrentConfidence())
}

func TestOrderIndependence(t *testing.T) {
	build := func(order []bool) float64 {
		h, err := New("agent-1", "deploy broke checkout", 0.4)
		require.NoError(t, err)
		for i, supports := range order {
			require.NoError(t, h.AddEvidence(mustEvidence(t, QualityIndirect, 0.8, supports)))
			if i == 1 {
				require.NoError(t, h.AddDisproofAttempt(survivedAttempt("mid")))
			}
		}
		return h.CurrentConfidence()
	}

	a := build([]bool{true, false, true})
	b := build([]bool{true, true, false})
	assert.InDelta(t, a, b, 1e-9, "the score must depend on the set of evidence, not its order")
}

func TestReasoningString(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.6)
	require.NoError(t, err)

	snap := h.Snapshot()
	assert.Contains(t, snap.ConfidenceReasoning, "Confidence: 60%")
	assert.Contains(t, snap.ConfidenceReasoning, "initial estimate")

	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityDirect, 0.9, true)))
	require.NoError(t, h.AddEvidence(mustEvidence(t, QualityWeak, 0.5, false)))
	require.NoError(t, h.AddDisproofAttempt(survivedAttempt("temporal_contradiction")))

	reasoning := h.Snapshot().ConfidenceReasoning
	assert.Contains(t, reasoning, "1 direct supporting observation(s)")
	assert.Contains(t, reasoning, "1 contradicting observation(s)")
	assert.Contains(t, reasoning, "survived 1 falsification attempt(s)")
	assert.True(t, strings.HasPrefix(reasoning, "Confidence: "))
}

func TestDisprovenReasoning(t *testing.T) {
	h, err := New("agent-1", "deploy broke checkout", 0.9)
	require.NoError(t, err)

	require.NoError(t, h.AddDisproofAttempt(DisproofAttempt{
		StrategyName: "temporal_contradiction",
		Method:       "anomaly predates the claimed cause",
		Outcome:      OutcomeFailed,
	}))

	reasoning := h.Snapshot().ConfidenceReasoning
	assert.Contains(t, reasoning, "Confidence: 0%")
	assert.Contains(t, reasoning, "disproven")
}
