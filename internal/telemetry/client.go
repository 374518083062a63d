// Package telemetry defines the boundary to the time-series/log backend the
// disproof strategies query. The engine consumes the Client interface only;
// the HTTP implementation and the mock live here so strategy tests and the
// demo command can run without a live backend.
package telemetry

import (
	"context"
	"fmt"
	"time"
)

// TimeRange is an absolute, half-open query window [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks that the range is well-formed and bounded.
func (tr TimeRange) Validate() error {
	if tr.Start.IsZero() || tr.End.IsZero() {
		return fmt.Errorf("time range requires both start and end")
	}
	if !tr.End.After(tr.Start) {
		return fmt.Errorf("time range end must be after start (got start=%s, end=%s)",
			tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339))
	}
	if tr.End.Sub(tr.Start) > 7*24*time.Hour {
		return fmt.Errorf("time range too large (max 7 days, got %s)", tr.End.Sub(tr.Start))
	}
	return nil
}

// Duration returns the window length.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// MetricPoint is one sample of a metric series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSeries is the result of a metric range query.
type MetricSeries struct {
	Selector string        `json:"selector"`
	Points   []MetricPoint `json:"points"`
}

// LogMatch is one log line matching a pattern query.
type LogMatch struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

// QueryFailure is the typed failure every Client operation returns on a
// backend problem. The strategies treat any QueryFailure uniformly as
// "insufficient data"; they never crash on one.
type QueryFailure struct {
	Operation  string // e.g. "query_metric_range"
	Selector   string
	StatusCode int  // HTTP status, 0 when the request never completed
	Timeout    bool // true when the deadline expired
	Err        error
}

func (f *QueryFailure) Error() string {
	if f.Timeout {
		return fmt.Sprintf("telemetry query failure: %s selector=%q: timed out", f.Operation, f.Selector)
	}
	if f.StatusCode != 0 {
		return fmt.Sprintf("telemetry query failure: %s selector=%q: status %d: %v", f.Operation, f.Selector, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("telemetry query failure: %s selector=%q: %v", f.Operation, f.Selector, f.Err)
}

func (f *QueryFailure) Unwrap() error {
	return f.Err
}

// Transient reports whether a retry might succeed. Timeouts, connection
// errors and 5xx responses are transient; 4xx responses are not.
func (f *QueryFailure) Transient() bool {
	if f.Timeout {
		return true
	}
	if f.StatusCode == 0 {
		return true
	}
	return f.StatusCode >= 500
}

// Client is the telemetry backend boundary. Every call honors the context
// deadline and returns either a result or a *QueryFailure.
type Client interface {
	// QueryMetricRange returns the sampled values of a metric over a window.
	QueryMetricRange(ctx context.Context, selector string, tr TimeRange) (*MetricSeries, error)

	// QueryAffectedEntityCount returns how many entities matching the
	// selector were observed affected during the window.
	QueryAffectedEntityCount(ctx context.Context, selector string, tr TimeRange) (int, error)

	// QueryLogOccurrences returns up to limit log lines matching the pattern
	// within the window.
	QueryLogOccurrences(ctx context.Context, pattern string, tr TimeRange, limit int) ([]LogMatch, error)
}
