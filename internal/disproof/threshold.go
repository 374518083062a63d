package disproof

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

// DefaultEqualityTolerance is the relative tolerance applied to the ==
// operator: observed and claimed match when they differ by at most this
// fraction of the claimed value.
const DefaultEqualityTolerance = 0.05

// MetricThresholdValidation tests a claimed (metric, operator, threshold)
// triple against the observed value of the metric over the incident window.
// The observed value is the mean of the sampled points.
type MetricThresholdValidation struct {
	cfg               Config
	equalityTolerance float64
	logger            *logging.Logger
	observer          tracing.Observer
}

// NewMetricThresholdValidation creates the strategy with the default
// equality tolerance.
func NewMetricThresholdValidation(cfg Config) *MetricThresholdValidation {
	return &MetricThresholdValidation{
		cfg:               cfg.withDefaults(),
		equalityTolerance: DefaultEqualityTolerance,
		logger:            logging.GetLogger("disproof.threshold"),
		observer:          tracing.Noop(),
	}
}

// WithEqualityTolerance overrides the relative tolerance for ==.
func (s *MetricThresholdValidation) WithEqualityTolerance(tol float64) *MetricThresholdValidation {
	if tol > 0 {
		s.equalityTolerance = tol
	}
	return s
}

// WithObserver wires an observability sink.
func (s *MetricThresholdValidation) WithObserver(obs tracing.Observer) *MetricThresholdValidation {
	if obs != nil {
		s.observer = obs
	}
	return s
}

// Name implements Strategy.
func (s *MetricThresholdValidation) Name() string {
	return "metric_threshold_validation"
}

// AttemptDisproof implements Strategy.
func (s *MetricThresholdValidation) AttemptDisproof(ctx context.Context, h *hypothesis.Hypothesis, client telemetry.Client) hypothesis.DisproofAttempt {
	ctx, span := s.observer.StartSpan(ctx, "disproof.metric_threshold_validation",
		tracing.String("hypothesis_id", h.ID()))
	defer span.End()

	metric, err := metaString(h, MetaClaimedMetric)
	if err != nil {
		return s.inconclusive(span, 0, "no claimed metric on the hypothesis", err)
	}
	operator, err := metaString(h, MetaClaimedOperator)
	if err != nil {
		return s.inconclusive(span, 0, "no claimed operator on the hypothesis", err)
	}
	if !validOperator(operator) {
		return s.inconclusive(span, 0, fmt.Sprintf("unsupported operator %q", operator), nil)
	}
	thresholdRaw, err := metaString(h, MetaClaimedThreshold)
	if err != nil {
		return s.inconclusive(span, 0, "no claimed threshold on the hypothesis", err)
	}
	threshold, err := strconv.ParseFloat(thresholdRaw, 64)
	if err != nil {
		return s.inconclusive(span, 0, fmt.Sprintf("unparseable threshold %q", thresholdRaw), err)
	}
	window, err := incidentWindow(h)
	if err != nil {
		return s.inconclusive(span, 0, "no incident window on the hypothesis", err)
	}

	var series *telemetry.MetricSeries
	cost, err := runQuery(ctx, s.cfg, func(qctx context.Context) error {
		var qerr error
		series, qerr = client.QueryMetricRange(qctx, metric, window)
		return qerr
	})
	if err != nil {
		s.logger.Warn("metric range query failed for %s: %v", metric, err)
		span.RecordError(err)
		return s.inconclusive(span, cost, fmt.Sprintf("telemetry query for %q failed", metric), err)
	}
	if series == nil || len(series.Points) == 0 {
		return s.inconclusive(span, cost, fmt.Sprintf("no data for %q in the incident window", metric), nil)
	}

	values := make([]float64, 0, len(series.Points))
	for _, p := range series.Points {
		values = append(values, p.Value)
	}
	observed := computeMean(values)

	matches := compareWithOperator(observed, operator, threshold, s.equalityTolerance)

	method := fmt.Sprintf("compared observed mean of %q (%.4g over %d samples) against claim %s %s",
		metric, observed, len(series.Points), operator, thresholdRaw)

	data, _ := json.Marshal(map[string]interface{}{
		"metric":    metric,
		"operator":  operator,
		"threshold": threshold,
		"observed":  observed,
		"samples":   len(series.Points),
	})

	span.SetAttr(tracing.Float64("observed", observed), tracing.Bool("matches", matches))

	if matches {
		return newAttempt(s.Name(), method, hypothesis.OutcomeSurvived, cost,
			observationEvidence("telemetry:"+metric,
				fmt.Sprintf("observed value %.4g satisfies the claimed condition %s %s", observed, operator, thresholdRaw),
				string(data), true))
	}

	return newAttempt(s.Name(), method, hypothesis.OutcomeFailed, cost,
		observationEvidence("telemetry:"+metric,
			fmt.Sprintf("observed value %.4g contradicts the claimed condition %s %s", observed, operator, thresholdRaw),
			string(data), false))
}

func (s *MetricThresholdValidation) inconclusive(span tracing.Span, cost float64, reason string, err error) hypothesis.DisproofAttempt {
	span.SetAttr(tracing.String("outcome", string(hypothesis.OutcomeInconclusive)))
	interpretation := reason
	if err != nil {
		interpretation = fmt.Sprintf("%s: %v", reason, err)
	}
	return newAttempt(s.Name(),
		"compare the observed metric value against the claimed threshold condition",
		hypothesis.OutcomeInconclusive, cost,
		inconclusiveEvidence("strategy:metric_threshold_validation", interpretation, ""))
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==":
		return true
	}
	return false
}

// compareWithOperator applies the claimed operator. Equality uses a relative
// tolerance since sampled telemetry rarely lands on exact values.
func compareWithOperator(observed float64, operator string, threshold, equalityTolerance float64) bool {
	switch operator {
	case ">":
		return observed > threshold
	case "<":
		return observed < threshold
	case ">=":
		return observed >= threshold
	case "<=":
		return observed <= threshold
	case "==":
		scale := math.Abs(threshold)
		if scale < 1e-9 {
			scale = 1e-9
		}
		return math.Abs(observed-threshold) <= equalityTolerance*scale
	}
	return false
}
