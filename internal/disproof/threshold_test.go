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

func thresholdMetadata(operator, threshold string) map[string]string {
	start := time.Date(2026, 8, 14, 14, 0, 0, 0, time.UTC)
	return map[string]string{
		MetaClaimedMetric:    "latency_p99:checkout",
		MetaClaimedOperator:  operator,
		MetaClaimedThreshold: threshold,
		MetaIncidentStart:    start.Format(time.RFC3339),
		MetaIncidentEnd:      start.Add(time.Hour).Format(time.RFC3339),
	}
}

func TestMetricThresholdValidationOutcomes(t *testing.T) {
	start := time.Date(2026, 8, 14, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		operator  string
		threshold string
		values    []float64
		want      hypothesis.DisproofOutcome
	}{
		{"greater-than holds", ">", "100", []float64{150, 160, 170}, hypothesis.OutcomeSurvived},
		{"greater-than contradicted", ">", "100", []float64{50, 60, 70}, hypothesis.OutcomeFailed},
		{"less-than holds", "<", "100", []float64{50, 60, 70}, hypothesis.OutcomeSurvived},
		{"gte boundary", ">=", "60", []float64{50, 60, 70}, hypothesis.OutcomeSurvived},
		{"lte contradicted", "<=", "50", []float64{50, 60, 70}, hypothesis.OutcomeFailed},
		{"equality within tolerance", "==", "100", []float64{98, 100, 103}, hypothesis.OutcomeSurvived}, // mean 100.33, within 5%
		{"equality outside tolerance", "==", "100", []float64{150, 160, 170}, hypothesis.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHypothesis(t, thresholdMetadata(tt.operator, tt.threshold))
			mock := telemetry.NewMock()
			mock.SetSeries("latency_p99:checkout", telemetry.Points(start.Add(time.Minute), time.Minute, tt.values...))

			attempt := NewMetricThresholdValidation(Config{}).AttemptDisproof(context.Background(), h, mock)

			assert.Equal(t, tt.want, attempt.Outcome)
			require.NotEmpty(t, attempt.Evidence)
			assert.Equal(t, "metric_threshold_validation", attempt.StrategyName)
		})
	}
}

func TestMetricThresholdInconclusiveCases(t *testing.T) {
	t.Run("missing operator", func(t *testing.T) {
		md := thresholdMetadata(">", "100")
		delete(md, MetaClaimedOperator)
		h := newHypothesis(t, md)
		attempt := NewMetricThresholdValidation(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("unsupported operator", func(t *testing.T) {
		h := newHypothesis(t, thresholdMetadata("!=", "100"))
		attempt := NewMetricThresholdValidation(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("unparseable threshold", func(t *testing.T) {
		h := newHypothesis(t, thresholdMetadata(">", "a lot"))
		attempt := NewMetricThresholdValidation(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})

	t.Run("empty series", func(t *testing.T) {
		h := newHypothesis(t, thresholdMetadata(">", "100"))
		attempt := NewMetricThresholdValidation(Config{}).AttemptDisproof(context.Background(), h, telemetry.NewMock())
		assert.Equal(t, hypothesis.OutcomeInconclusive, attempt.Outcome)
	})
}

func TestCompareWithOperator(t *testing.T) {
	tests := []struct {
		observed  float64
		operator  string
		threshold float64
		want      bool
	}{
		{150, ">", 100, true},
		{100, ">", 100, false},
		{99, "<", 100, true},
		{100, ">=", 100, true},
		{100, "<=", 100, true},
		{101, "<=", 100, false},
		{102, "==", 100, true},   // 2% off, inside 5% relative tolerance
		{106, "==", 100, false},  // 6% off
		{0.0, "==", 0.0, true},   // zero threshold uses the scale floor
		{0.5, "==", 0.0, false},
		{1, "~", 1, false}, // unknown operator never matches
	}
	for _, tt := range tests {
		got := compareWithOperator(tt.observed, tt.operator, tt.threshold, DefaultEqualityTolerance)
		assert.Equal(t, tt.want, got, "%v %s %v", tt.observed, tt.operator, tt.threshold)
	}
}

func TestRunQueryRetriesTransientFailures(t *testing.T) {
	cfg := Config{QueryTimeout: time.Second, MaxRetries: 2, RetryBackoff: time.Millisecond}

	t.Run("transient failure retried until success", func(t *testing.T) {
		calls := 0
		cost, err := runQuery(context.Background(), cfg, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return &telemetry.QueryFailure{Operation: "q", StatusCode: 503}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Greater(t, cost, 0.0)
	})

	t.Run("non-transient failure not retried", func(t *testing.T) {
		calls := 0
		_, err := runQuery(context.Background(), cfg, func(ctx context.Context) error {
			calls++
			return &telemetry.QueryFailure{Operation: "q", StatusCode: 400}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		calls := 0
		_, err := runQuery(context.Background(), cfg, func(ctx context.Context) error {
			calls++
			return &telemetry.QueryFailure{Operation: "q", Timeout: true}
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}
