package telemetry

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Client for tests and the demo command. Canned results
// are keyed by selector/pattern; queries for unknown keys return empty
// results, and failures can be injected per operation.
type Mock struct {
	mu sync.Mutex

	series   map[string]*MetricSeries
	counts   map[string]int
	logs     map[string][]LogMatch
	failures map[string]*QueryFailure

	// Calls records every query issued, for assertions.
	Calls []MockCall
}

// MockCall records one query issued against the mock.
type MockCall struct {
	Operation string
	Selector  string
	Range     TimeRange
}

// NewMock creates an empty mock telemetry client.
func NewMock() *Mock {
	return &Mock{
		series:   make(map[string]*MetricSeries),
		counts:   make(map[string]int),
		logs:     make(map[string][]LogMatch),
		failures: make(map[string]*QueryFailure),
	}
}

// SetSeries registers a canned metric series for a selector.
func (m *Mock) SetSeries(selector string, points []MetricPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[selector] = &MetricSeries{Selector: selector, Points: points}
}

// SetAffectedCount registers a canned entity count for a selector.
func (m *Mock) SetAffectedCount(selector string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[selector] = count
}

// SetLogs registers canned log matches for a pattern.
func (m *Mock) SetLogs(pattern string, matches []LogMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[pattern] = matches
}

// FailOperation makes every call of the named operation return the failure.
func (m *Mock) FailOperation(operation string, failure *QueryFailure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[operation] = failure
}

func (m *Mock) record(op, selector string, tr TimeRange) *QueryFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Operation: op, Selector: selector, Range: tr})
	return m.failures[op]
}

// QueryMetricRange implements Client.
func (m *Mock) QueryMetricRange(ctx context.Context, selector string, tr TimeRange) (*MetricSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, &QueryFailure{Operation: "query_metric_range", Selector: selector, Timeout: true, Err: err}
	}
	if f := m.record("query_metric_range", selector, tr); f != nil {
		return nil, f
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	series, ok := m.series[selector]
	if !ok {
		return &MetricSeries{Selector: selector}, nil
	}

	// Filter to the requested window, as a real backend would.
	filtered := &MetricSeries{Selector: selector}
	for _, p := range series.Points {
		if !p.Timestamp.Before(tr.Start) && p.Timestamp.Before(tr.End) {
			filtered.Points = append(filtered.Points, p)
		}
	}
	return filtered, nil
}

// QueryAffectedEntityCount implements Client.
func (m *Mock) QueryAffectedEntityCount(ctx context.Context, selector string, tr TimeRange) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &QueryFailure{Operation: "query_affected_entity_count", Selector: selector, Timeout: true, Err: err}
	}
	if f := m.record("query_affected_entity_count", selector, tr); f != nil {
		return 0, f
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[selector], nil
}

// QueryLogOccurrences implements Client.
func (m *Mock) QueryLogOccurrences(ctx context.Context, pattern string, tr TimeRange, limit int) ([]LogMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, &QueryFailure{Operation: "query_log_occurrences", Selector: pattern, Timeout: true, Err: err}
	}
	if f := m.record("query_log_occurrences", pattern, tr); f != nil {
		return nil, f
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.logs[pattern]
	var out []LogMatch
	for _, lm := range matches {
		if lm.Timestamp.Before(tr.Start) || !lm.Timestamp.Before(tr.End) {
			continue
		}
		out = append(out, lm)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Points is a helper building a regularly sampled series between start and
// end from raw values.
func Points(start time.Time, step time.Duration, values ...float64) []MetricPoint {
	pts := make([]MetricPoint, 0, len(values))
	for i, v := range values {
		pts = append(pts, MetricPoint{Timestamp: start.Add(time.Duration(i) * step), Value: v})
	}
	return pts
}
