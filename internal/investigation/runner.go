// Package investigation orchestrates a single hypothesis investigation:
// propose, try to disprove with every configured strategy, settle a verdict
// and leave a replayable audit trail.
package investigation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refutehq/refute/internal/disproof"
	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/metrics"
	"github.com/refutehq/refute/internal/reasoning"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

// RunnerConfig bounds and tunes an investigation run.
type RunnerConfig struct {
	// BudgetSeconds caps the summed query cost across strategies. Zero
	// means unbounded.
	BudgetSeconds float64

	// ValidationThreshold is the confidence a hypothesis must reach, with
	// at least one survived attempt and no failed ones, to be validated.
	ValidationThreshold float64

	// PreviewBytes bounds raw payload previews in the exported record.
	PreviewBytes int
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.ValidationThreshold <= 0 {
		c.ValidationThreshold = 0.8
	}
	if c.PreviewBytes <= 0 {
		c.PreviewBytes = hypothesis.DefaultPayloadPreviewBytes
	}
	return c
}

// Runner drives investigations. It owns the hypothesis for the duration of a
// run; strategies only read it.
type Runner struct {
	cfg        RunnerConfig
	provider   reasoning.Provider
	client     telemetry.Client
	strategies []disproof.Strategy
	trail      *AuditTrail
	metrics    *metrics.Metrics
	observer   tracing.Observer
	logger     *logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithAuditTrail wires a JSONL audit trail. Nil disables it.
func WithAuditTrail(trail *AuditTrail) RunnerOption {
	return func(r *Runner) { r.trail = trail }
}

// WithMetrics wires Prometheus metrics.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithObserver wires an observability sink.
func WithObserver(obs tracing.Observer) RunnerOption {
	return func(r *Runner) {
		if obs != nil {
			r.observer = obs
		}
	}
}

// NewRunner creates a runner over the given provider, telemetry client and
// ordered strategy list.
func NewRunner(cfg RunnerConfig, provider reasoning.Provider, client telemetry.Client, strategies []disproof.Strategy, opts ...RunnerOption) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("reasoning provider is required")
	}
	if client == nil {
		return nil, fmt.Errorf("telemetry client is required")
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("at least one disproof strategy is required")
	}

	r := &Runner{
		cfg:        cfg.withDefaults(),
		provider:   provider,
		client:     client,
		strategies: strategies,
		observer:   tracing.Noop(),
		logger:     logging.GetLogger("investigation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// AttemptResult summarizes one executed strategy attempt.
type AttemptResult struct {
	Strategy string
	Outcome  hypothesis.DisproofOutcome
	Cost     float64
}

// Report is the outcome of one investigation run.
type Report struct {
	InvestigationID string
	Hypothesis      hypothesis.Snapshot
	Attempts        []AttemptResult
	TotalCost       float64
	BudgetExhausted bool
	Record          hypothesis.AuditRecord
}

// Run executes one full investigation over the given observations.
func (r *Runner) Run(ctx context.Context, obs reasoning.Observations) (*Report, error) {
	investigationID := uuid.NewString()
	logger := r.logger.WithField("investigation_id", investigationID)

	ctx, span := r.observer.StartSpan(ctx, "investigation.run",
		tracing.String("investigation_id", investigationID))
	defer span.End()

	r.audit(Event{
		Type:            EventTypeInvestigationStart,
		InvestigationID: investigationID,
		Data: map[string]interface{}{
			"provider":   r.provider.Name(),
			"strategies": r.strategyNames(),
		},
	})

	proposal, err := r.provider.ProposeHypothesis(ctx, obs)
	if err != nil {
		span.RecordError(err)
		r.audit(Event{
			Type:            EventTypeError,
			InvestigationID: investigationID,
			Data:            map[string]interface{}{"error": err.Error()},
		})
		return nil, fmt.Errorf("hypothesis proposal failed: %w", err)
	}

	h, err := hypothesis.New(r.provider.Name(), proposal.Statement, proposal.Confidence,
		hypothesis.WithObserver(r.observer),
		hypothesis.WithAffectedSystems(proposal.AffectedSystems...),
		hypothesis.WithMetadata(proposal.Metadata),
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("invalid hypothesis proposal: %w", err)
	}

	logger.InfoWithFields("hypothesis generated",
		logging.Field("hypothesis_id", h.ID()),
		logging.Field("initial_confidence", h.InitialConfidence()),
	)
	r.audit(Event{
		Type:            EventTypeHypothesisProposed,
		InvestigationID: investigationID,
		HypothesisID:    h.ID(),
		Data: map[string]interface{}{
			"statement":          proposal.Statement,
			"initial_confidence": proposal.Confidence,
		},
	})

	report := &Report{InvestigationID: investigationID}
	r.runStrategies(ctx, investigationID, h, report, logger)
	r.settleVerdict(h, report, logger, investigationID)

	record := h.ToAuditLogWithPreview(r.cfg.PreviewBytes)
	if err := r.trail.WriteExport(investigationID, record); err != nil {
		logger.Warn("failed to write exported record: %v", err)
	}

	report.Hypothesis = h.Snapshot()
	report.Record = record

	if r.metrics != nil {
		r.metrics.ObserveInvestigationCost(report.TotalCost)
	}
	span.SetAttr(
		tracing.Float64("total_cost", report.TotalCost),
		tracing.String("status", string(report.Hypothesis.Status)),
		tracing.Float64("confidence", report.Hypothesis.CurrentConfidence),
	)

	r.audit(Event{
		Type:            EventTypeInvestigationComplete,
		InvestigationID: investigationID,
		HypothesisID:    h.ID(),
		Data: map[string]interface{}{
			"status":     string(report.Hypothesis.Status),
			"confidence": report.Hypothesis.CurrentConfidence,
			"total_cost": report.TotalCost,
			"attempts":   len(report.Attempts),
		},
	})
	return report, nil
}

// runStrategies executes every strategy in order until the hypothesis turns
// terminal, the budget runs out or the context is cancelled.
func (r *Runner) runStrategies(ctx context.Context, investigationID string, h *hypothesis.Hypothesis, report *Report, logger *logging.Logger) {
	for _, strategy := range r.strategies {
		if ctx.Err() != nil {
			logger.Warn("investigation cancelled after %d attempts: %v", len(report.Attempts), ctx.Err())
			return
		}
		if r.cfg.BudgetSeconds > 0 && report.TotalCost >= r.cfg.BudgetSeconds {
			report.BudgetExhausted = true
			logger.WarnWithFields("investigation budget exhausted",
				logging.Field("total_cost", report.TotalCost),
				logging.Field("budget", r.cfg.BudgetSeconds),
			)
			return
		}

		attempt := strategy.AttemptDisproof(ctx, h, r.client)
		report.TotalCost += attempt.Cost
		report.Attempts = append(report.Attempts, AttemptResult{
			Strategy: attempt.StrategyName,
			Outcome:  attempt.Outcome,
			Cost:     attempt.Cost,
		})
		if r.metrics != nil {
			r.metrics.IncAttempt(attempt.StrategyName, string(attempt.Outcome))
		}

		before := h.Status()
		if err := h.AddDisproofAttempt(attempt); err != nil {
			logger.Warn("could not record attempt from %s: %v", attempt.StrategyName, err)
			r.audit(Event{
				Type:            EventTypeError,
				InvestigationID: investigationID,
				HypothesisID:    h.ID(),
				Data:            map[string]interface{}{"strategy": attempt.StrategyName, "error": err.Error()},
			})
			return
		}
		after := h.Status()

		logger.InfoWithFields("disproof attempt recorded",
			logging.Field("strategy", attempt.StrategyName),
			logging.Field("outcome", string(attempt.Outcome)),
			logging.Field("cost_seconds", attempt.Cost),
			logging.Field("confidence", h.CurrentConfidence()),
		)
		r.audit(Event{
			Type:            EventTypeDisproofAttempt,
			InvestigationID: investigationID,
			HypothesisID:    h.ID(),
			Data: map[string]interface{}{
				"strategy":     attempt.StrategyName,
				"outcome":      string(attempt.Outcome),
				"method":       attempt.Method,
				"cost_seconds": attempt.Cost,
				"confidence":   h.CurrentConfidence(),
			},
		})
		if after != before {
			r.auditStatusChange(investigationID, h, before, after)
		}

		if after.Terminal() {
			return
		}
	}
}

// settleVerdict validates the hypothesis when it survived at least one
// attempt with none failed and cleared the confidence bar.
func (r *Runner) settleVerdict(h *hypothesis.Hypothesis, report *Report, logger *logging.Logger, investigationID string) {
	status := h.Status()
	if status.Terminal() {
		return
	}

	survived := 0
	for _, a := range report.Attempts {
		if a.Outcome == hypothesis.OutcomeSurvived {
			survived++
		}
	}
	if survived == 0 || h.CurrentConfidence() < r.cfg.ValidationThreshold {
		logger.InfoWithFields("hypothesis left unvalidated",
			logging.Field("survived", survived),
			logging.Field("confidence", h.CurrentConfidence()),
			logging.Field("threshold", r.cfg.ValidationThreshold),
		)
		return
	}

	before := h.Status()
	if err := h.MarkValidated(); err != nil {
		logger.Warn("could not validate hypothesis: %v", err)
		return
	}
	logger.InfoWithFields("hypothesis validated",
		logging.Field("confidence", h.CurrentConfidence()),
		logging.Field("survived", survived),
	)
	r.auditStatusChange(investigationID, h, before, h.Status())
}

func (r *Runner) auditStatusChange(investigationID string, h *hypothesis.Hypothesis, from, to hypothesis.Status) {
	r.audit(Event{
		Type:            EventTypeStatusChange,
		InvestigationID: investigationID,
		HypothesisID:    h.ID(),
		Data: map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		},
	})
}

func (r *Runner) audit(event Event) {
	if err := r.trail.Write(event); err != nil {
		r.logger.Warn("audit trail write failed: %v", err)
	}
}

func (r *Runner) strategyNames() []string {
	names := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		names = append(names, s.Name())
	}
	return names
}
