package disproof

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

// DefaultScopeTolerance is the allowed gap, in percentage points, between
// claimed and observed affected share.
const DefaultScopeTolerance = 15.0

// Approximate affected shares implied by the qualitative scope descriptors.
const (
	scopeAllPercent  = 95.0
	scopeMostPercent = 80.0
	scopeSomePercent = 30.0
)

// ScopeVerification tests whether the hypothesis's claim about how much of
// the population is affected matches the observed affected entity count.
type ScopeVerification struct {
	cfg       Config
	tolerance float64
	logger    *logging.Logger
	observer  tracing.Observer
}

// NewScopeVerification creates the strategy with the default tolerance.
func NewScopeVerification(cfg Config) *ScopeVerification {
	return &ScopeVerification{
		cfg:       cfg.withDefaults(),
		tolerance: DefaultScopeTolerance,
		logger:    logging.GetLogger("disproof.scope"),
		observer:  tracing.Noop(),
	}
}

// WithTolerance overrides the percentage-point tolerance.
func (s *ScopeVerification) WithTolerance(points float64) *ScopeVerification {
	if points > 0 {
		s.tolerance = points
	}
	return s
}

// WithObserver wires an observability sink.
func (s *ScopeVerification) WithObserver(obs tracing.Observer) *ScopeVerification {
	if obs != nil {
		s.observer = obs
	}
	return s
}

// Name implements Strategy.
func (s *ScopeVerification) Name() string {
	return "scope_verification"
}

// AttemptDisproof implements Strategy.
func (s *ScopeVerification) AttemptDisproof(ctx context.Context, h *hypothesis.Hypothesis, client telemetry.Client) hypothesis.DisproofAttempt {
	ctx, span := s.observer.StartSpan(ctx, "disproof.scope_verification",
		tracing.String("hypothesis_id", h.ID()))
	defer span.End()

	claim, err := metaString(h, MetaClaimedScope)
	if err != nil {
		return s.inconclusive(span, 0, "no scope claim on the hypothesis", err)
	}
	selector, err := metaString(h, MetaScopeSelector)
	if err != nil {
		return s.inconclusive(span, 0, "no scope selector on the hypothesis", err)
	}
	population, err := metaInt(h, MetaScopePopulation)
	if err != nil || population <= 0 {
		return s.inconclusive(span, 0, "no usable population size on the hypothesis", err)
	}
	window, err := incidentWindow(h)
	if err != nil {
		return s.inconclusive(span, 0, "no incident window on the hypothesis", err)
	}

	claimedPercent, claimDescription, err := parseScopeClaim(claim, population)
	if err != nil {
		return s.inconclusive(span, 0, fmt.Sprintf("unparseable scope claim %q", claim), err)
	}

	var observed int
	cost, err := runQuery(ctx, s.cfg, func(qctx context.Context) error {
		var qerr error
		observed, qerr = client.QueryAffectedEntityCount(qctx, selector, window)
		return qerr
	})
	if err != nil {
		s.logger.Warn("affected entity count query failed for %s: %v", selector, err)
		span.RecordError(err)
		return s.inconclusive(span, cost, fmt.Sprintf("telemetry query for %q failed", selector), err)
	}

	observedPercent := float64(observed) / float64(population) * 100
	gap := math.Abs(observedPercent - claimedPercent)

	method := fmt.Sprintf("compared claimed scope %s (~%.0f%%) against observed %d/%d affected entities (%.0f%%), tolerance %.0f points",
		claimDescription, claimedPercent, observed, population, observedPercent, s.tolerance)

	data, _ := json.Marshal(map[string]interface{}{
		"selector":         selector,
		"claimed_scope":    claim,
		"claimed_percent":  claimedPercent,
		"observed_count":   observed,
		"population":       population,
		"observed_percent": observedPercent,
		"tolerance_points": s.tolerance,
	})

	span.SetAttr(tracing.Float64("claimed_percent", claimedPercent),
		tracing.Float64("observed_percent", observedPercent))

	if gap <= s.tolerance {
		return newAttempt(s.Name(), method, hypothesis.OutcomeSurvived, cost,
			observationEvidence("telemetry:"+selector,
				fmt.Sprintf("observed affected share %.0f%% matches claimed %s within %.0f points",
					observedPercent, claimDescription, s.tolerance),
				string(data), true))
	}

	return newAttempt(s.Name(), method, hypothesis.OutcomeFailed, cost,
		observationEvidence("telemetry:"+selector,
			fmt.Sprintf("observed affected share %.0f%% contradicts claimed %s (~%.0f%%) by %.0f points",
				observedPercent, claimDescription, claimedPercent, gap),
			string(data), false))
}

func (s *ScopeVerification) inconclusive(span tracing.Span, cost float64, reason string, err error) hypothesis.DisproofAttempt {
	span.SetAttr(tracing.String("outcome", string(hypothesis.OutcomeInconclusive)))
	interpretation := reason
	if err != nil {
		interpretation = fmt.Sprintf("%s: %v", reason, err)
	}
	return newAttempt(s.Name(),
		"compare claimed affected scope against the observed affected entity count",
		hypothesis.OutcomeInconclusive, cost,
		inconclusiveEvidence("strategy:scope_verification", interpretation, ""))
}

// parseScopeClaim turns a scope descriptor into a claimed affected
// percentage. Accepts the qualitative tiers ALL/MOST/SOME, a plain count, or
// a comma-separated list of specific entities.
func parseScopeClaim(claim string, population int) (float64, string, error) {
	switch strings.ToUpper(claim) {
	case "ALL":
		return scopeAllPercent, "ALL", nil
	case "MOST":
		return scopeMostPercent, "MOST", nil
	case "SOME":
		return scopeSomePercent, "SOME", nil
	}

	if n, err := strconv.Atoi(claim); err == nil {
		if n < 0 {
			return 0, "", fmt.Errorf("negative entity count %d", n)
		}
		return float64(n) / float64(population) * 100, fmt.Sprintf("%d specific entities", n), nil
	}

	if strings.Contains(claim, ",") || claim != "" {
		entities := 0
		for _, part := range strings.Split(claim, ",") {
			if strings.TrimSpace(part) != "" {
				entities++
			}
		}
		if entities == 0 {
			return 0, "", fmt.Errorf("empty entity list")
		}
		return float64(entities) / float64(population) * 100, fmt.Sprintf("%d named entities", entities), nil
	}

	return 0, "", fmt.Errorf("unrecognized scope descriptor")
}
