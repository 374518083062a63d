package disproof

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/telemetry"
)

func scopeMetadata(claim string) map[string]string {
	start := time.Date(2026, 8, 14, 14, 0, 0, 0, time.UTC)
	return map[string]string{
		MetaClaimedScope:    claim,
		MetaScopeSelector:   "service:checkout",
		MetaScopePopulation: "20",
		MetaIncidentStart:   start.Format(time.RFC3339),
		MetaIncidentEnd:     start.Add(time.Hour).Format(time.RFC3339),
	}
}

func TestScopeVerificationOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		claim    string
		affected int
		want     hypothesis.DisproofOutcome
	}{
		{"ALL claim but few affected", "ALL", 6, hypothesis.OutcomeFailed},           // 30% vs ~95%
		{"ALL claim with most affected", "ALL", 19, hypothesis.OutcomeSurvived},      // 95% vs ~95%
		{"MOST claim matching", "MOST", 17, hypothesis.OutcomeSurvived},              // 85% vs ~80%
		{"MOST claim overstated", "MOST", 4, hypothesis.OutcomeFailed},               // 20% vs ~80%
		{"SOME claim matching", "SOME", 7, hypothesis.OutcomeSurvived},               // 35% vs ~30%
		{"SOME claim understated", "SOME", 19, hypothesis.OutcomeFailed},             // 95% vs ~30%
		{"count claim within tolerance", "10", 12, hypothesis.OutcomeSurvived},       // 60% vs 50%
		{"count claim far off", "2", 18, hypothesis.OutcomeFailed},                   // 90% vs 10%
		{"entity list claim", "checkout-1,checkout-2,checkout-3", 4, hypothesis.OutcomeSurvived}, // 20% vs 15%
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHypothesis(t, scopeMetadata(tt.claim))
			mock := telemetry.NewMock()
			mock.SetAffectedCount("service:checkout", tt.affected)

			attempt := NewScopeVerification(Config{}).AttemptDisproof(context.Background(), h, mock)

			assert.Equal(t, tt.want, attempt.Outcome)
			require.NotEmpty(t, attempt.Evidence)
			assert.Equal(t, "scope_verification", attempt.StrategyName)
		})
	}
}

func TestScopeVerificationCustomTolerance(t *testing.T) {
	// 85% observed vs MOST (~80%): survives at 15 points, fails at 2.
	h := newHypothesis(t, scopeMetadata("MOST"))
	mock := telemetry.NewMock()
	mock.SetAffectedCount("service:checkout", 17)

	strict := NewScopeVerification(Config{}).WithTolerance(2)
	attempt := strict.AttemptDisproof(context.Background(), h, mock)
	assert.Equal(t, hypothesis.OutcomeFailed, attempt.Outcome)
}

func TestScopeVerificationInconclusiveCases(t *testing.T) {
	t.Run("missing scope claim", func(t *testing.T) {
		md := scopeMetadata("ALL")
		delete(md, MetaClaimedScope)
		h := newHypothesis(t, md)
		attempt := NewScopeVerification(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("zero population", func(t *testing.T) {
		md := scopeMetadata("ALL")
		md[MetaScopePopulation] = "0"
		h := newHypothesis(t, md)
		attempt := NewScopeVerification(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("missing incident window", func(t *testing.T) {
		md := scopeMetadata("ALL")
		delete(md, MetaIncidentStart)
		h := newHypothesis(t, md)
		attempt := NewScopeVerification(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("query failure", func(t *testing.T) {
		h := newHypothesis(t, scopeMetadata("ALL"))
		mock := telemetry.NewMock()
		mock.FailOperation("query_affected_entity_count", &telemetry.QueryFailure{
			Operation: "query_affected_entity_count", StatusCode: 500,
		})
		attempt := NewScopeVerification(Config{MaxRetries: -1}).AttemptDisproof(context.Background(), h, mock)
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})
}

func TestParseScopeClaim(t *testing.T) {
	tests := []struct {
		claim       string
		population  int
		wantPercent float64
		wantErr     bool
	}{
		{"ALL", 20, 95, false},
		{"all", 20, 95, false},
		{"MOST", 20, 80, false},
		{"SOME", 20, 30, false},
		{"5", 20, 25, false},
		{"a,b,c,d", 20, 20, false},
		{"single-entity", 20, 5, false},
		{"-3", 20, 0, true},
		{"", 20, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.claim, func(t *testing.T) {
			percent, _, err := parseScopeClaim(tt.claim, tt.population)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPercent, percent, 1e-9)
		})
	}
}
