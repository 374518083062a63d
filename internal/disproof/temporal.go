package disproof

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

const (
	// DefaultTemporalBuffer absorbs clock skew between the claimed causal
	// event and the telemetry timeline.
	DefaultTemporalBuffer = 5 * time.Minute

	// DefaultTemporalLookback is how far before the earliest claimed time the
	// metric window extends. The anomaly must be visible with clean baseline
	// ahead of it for onset detection to work.
	DefaultTemporalLookback = 3 * time.Hour

	// minSeriesPoints is the least data onset detection will work with.
	minSeriesPoints = 4

	// onsetZScore is the deviation (in baseline standard deviations) at
	// which a sample counts as anomalous.
	onsetZScore = 3.0
)

// TemporalContradiction tests whether a claimed cause could have produced
// the observed symptoms at all: if the anomaly demonstrably existed before
// the claimed causal event (beyond the skew buffer), the hypothesis is
// temporally impossible.
type TemporalContradiction struct {
	cfg      Config
	buffer   time.Duration
	lookback time.Duration
	logger   *logging.Logger
	observer tracing.Observer
}

// NewTemporalContradiction creates the strategy with the default buffer.
func NewTemporalContradiction(cfg Config) *TemporalContradiction {
	return &TemporalContradiction{
		cfg:      cfg.withDefaults(),
		buffer:   DefaultTemporalBuffer,
		lookback: DefaultTemporalLookback,
		logger:   logging.GetLogger("disproof.temporal"),
		observer: tracing.Noop(),
	}
}

// WithBuffer overrides the clock-skew buffer.
func (s *TemporalContradiction) WithBuffer(buffer time.Duration) *TemporalContradiction {
	if buffer > 0 {
		s.buffer = buffer
	}
	return s
}

// WithObserver wires an observability sink.
func (s *TemporalContradiction) WithObserver(obs tracing.Observer) *TemporalContradiction {
	if obs != nil {
		s.observer = obs
	}
	return s
}

// Name implements Strategy.
func (s *TemporalContradiction) Name() string {
	return "temporal_contradiction"
}

// AttemptDisproof implements Strategy.
func (s *TemporalContradiction) AttemptDisproof(ctx context.Context, h *hypothesis.Hypothesis, client telemetry.Client) hypothesis.DisproofAttempt {
	ctx, span := s.observer.StartSpan(ctx, "disproof.temporal_contradiction",
		tracing.String("hypothesis_id", h.ID()))
	defer span.End()

	causeTime, err := metaTime(h, MetaClaimedCauseTime)
	if err != nil {
		return s.inconclusive(span, 0, "no claimed causal time on the hypothesis", err)
	}
	onsetTime, err := metaTime(h, MetaSymptomOnsetTime)
	if err != nil {
		return s.inconclusive(span, 0, "no symptom onset time on the hypothesis", err)
	}
	metric, err := metaString(h, MetaCausalMetric)
	if err != nil {
		return s.inconclusive(span, 0, "no causal metric on the hypothesis", err)
	}

	earliest := causeTime
	if onsetTime.Before(earliest) {
		earliest = onsetTime
	}
	latest := causeTime
	if onsetTime.After(latest) {
		latest = onsetTime
	}
	window := telemetry.TimeRange{
		Start: earliest.Add(-s.lookback),
		End:   latest.Add(s.buffer + 15*time.Minute),
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

	if series == nil || len(series.Points) < minSeriesPoints {
		return s.inconclusive(span, cost,
			fmt.Sprintf("insufficient data for %q in the relevant window (%d points)", metric, seriesLen(series)), nil)
	}

	anomalyOnset, found := detectAnomalyOnset(series.Points)
	method := fmt.Sprintf("compared detected anomaly onset of %q against claimed causal event at %s (buffer %s)",
		metric, causeTime.Format(time.RFC3339), s.buffer)

	data, _ := json.Marshal(map[string]interface{}{
		"metric":         metric,
		"window_start":   window.Start.UTC().Format(time.RFC3339),
		"window_end":     window.End.UTC().Format(time.RFC3339),
		"points":         len(series.Points),
		"claimed_cause":  causeTime.Format(time.RFC3339),
		"symptom_onset":  onsetTime.Format(time.RFC3339),
		"anomaly_found":  found,
		"anomaly_onset":  formatOnset(anomalyOnset, found),
	})

	if !found {
		return newAttempt(s.Name(), method, hypothesis.OutcomeInconclusive, cost,
			inconclusiveEvidence(s.evidenceSource(metric),
				fmt.Sprintf("no anomalous deviation of %q detected in the queried window; cannot test temporal ordering", metric),
				string(data)))
	}

	lead := causeTime.Sub(anomalyOnset)
	span.SetAttr(tracing.String("anomaly_onset", anomalyOnset.Format(time.RFC3339)),
		tracing.Float64("lead_seconds", lead.Seconds()))

	if lead > s.buffer {
		// The anomaly predates the claimed cause by more than clock skew can
		// explain: the hypothesis is temporally impossible.
		return newAttempt(s.Name(), method, hypothesis.OutcomeFailed, cost,
			observationEvidence(s.evidenceSource(metric),
				fmt.Sprintf("anomaly in %q began at %s, %s before the claimed cause; the claimed event cannot have caused it",
					metric, anomalyOnset.Format(time.RFC3339), formatDuration(lead)),
				string(data), false))
	}

	return newAttempt(s.Name(), method, hypothesis.OutcomeSurvived, cost,
		observationEvidence(s.evidenceSource(metric),
			fmt.Sprintf("anomaly in %q began at %s, consistent with the claimed cause at %s",
				metric, anomalyOnset.Format(time.RFC3339), causeTime.Format(time.RFC3339)),
			string(data), true))
}

func (s *TemporalContradiction) inconclusive(span tracing.Span, cost float64, reason string, err error) hypothesis.DisproofAttempt {
	span.SetAttr(tracing.String("outcome", string(hypothesis.OutcomeInconclusive)))
	interpretation := reason
	if err != nil {
		interpretation = fmt.Sprintf("%s: %v", reason, err)
	}
	return newAttempt(s.Name(),
		"compare anomaly onset in the causal metric against the claimed causal event time",
		hypothesis.OutcomeInconclusive, cost,
		inconclusiveEvidence("strategy:temporal_contradiction", interpretation, ""))
}

func (s *TemporalContradiction) evidenceSource(metric string) string {
	return "telemetry:" + metric
}

// detectAnomalyOnset finds the first sample deviating anomalously from the
// leading baseline. The baseline is the first tenth of the series (minimum
// three samples), which the lookback padding keeps ahead of any anomaly worth
// detecting.
func detectAnomalyOnset(points []telemetry.MetricPoint) (time.Time, bool) {
	baselineN := len(points) / 10
	if baselineN < 3 {
		baselineN = 3
	}
	if baselineN >= len(points) {
		return time.Time{}, false
	}

	baseline := make([]float64, 0, baselineN)
	for _, p := range points[:baselineN] {
		baseline = append(baseline, p.Value)
	}
	mean := computeMean(baseline)
	stddev := computeStdDev(baseline, mean)

	// With a flat baseline the z-score degenerates; fall back to a relative
	// deviation bound so step changes are still caught.
	threshold := onsetZScore * stddev
	if rel := 0.2 * math.Abs(mean); rel > threshold {
		threshold = rel
	}
	if threshold < 1e-9 {
		threshold = 1e-9
	}

	for _, p := range points[baselineN:] {
		if math.Abs(p.Value-mean) > threshold {
			return p.Timestamp, true
		}
	}
	return time.Time{}, false
}

func seriesLen(series *telemetry.MetricSeries) int {
	if series == nil {
		return 0
	}
	return len(series.Points)
}

func formatOnset(t time.Time, found bool) string {
	if !found {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
