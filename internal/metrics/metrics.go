// Package metrics holds Prometheus instrumentation for investigations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for investigation observability.
type Metrics struct {
	AttemptsTotal      *prometheus.CounterVec   // Disproof attempts by strategy and outcome
	QueryFailuresTotal *prometheus.CounterVec   // Telemetry query failures by operation
	QueryDuration      *prometheus.HistogramVec // Telemetry query latency by operation
	InvestigationCost  prometheus.Histogram     // Total cost per investigation
}

// New creates investigation metrics registered against the given registerer.
// The registerer parameter allows flexible registration (global registry in
// production, a fresh registry in tests).
func New(reg prometheus.Registerer) *Metrics {
	attemptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refute_disproof_attempts_total",
		Help: "Total number of disproof attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})

	queryFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refute_telemetry_query_failures_total",
		Help: "Total number of failed telemetry queries by operation",
	}, []string{"operation"})

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "refute_telemetry_query_duration_seconds",
		Help:    "Telemetry query latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	investigationCost := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "refute_investigation_cost_seconds",
		Help:    "Total query cost accumulated per investigation",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	reg.MustRegister(attemptsTotal)
	reg.MustRegister(queryFailuresTotal)
	reg.MustRegister(queryDuration)
	reg.MustRegister(investigationCost)

	return &Metrics{
		AttemptsTotal:      attemptsTotal,
		QueryFailuresTotal: queryFailuresTotal,
		QueryDuration:      queryDuration,
		InvestigationCost:  investigationCost,
	}
}

// IncAttempt records one disproof attempt outcome.
func (m *Metrics) IncAttempt(strategy, outcome string) {
	m.AttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

// IncQueryFailure records one failed telemetry query.
func (m *Metrics) IncQueryFailure(operation string) {
	m.QueryFailuresTotal.WithLabelValues(operation).Inc()
}

// ObserveQueryDuration records the latency of one telemetry query.
func (m *Metrics) ObserveQueryDuration(operation string, d time.Duration) {
	m.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveInvestigationCost records the total cost of a finished investigation.
func (m *Metrics) ObserveInvestigationCost(cost float64) {
	m.InvestigationCost.Observe(cost)
}
