// Package disproof implements the falsification side of an investigation:
// pluggable strategies that query a telemetry backend trying to disprove a
// hypothesis. Strategies never crash on missing or ambiguous data: absence
// of data is an INCONCLUSIVE verdict with explanatory evidence, never a
// silent survival.
package disproof

import (
	"context"
	"time"

	"github.com/refutehq/refute/internal/hypothesis"
	"github.com/refutehq/refute/internal/telemetry"
)

// Strategy is one falsification approach. AttemptDisproof always returns a
// complete attempt; query failures and missing claims are folded into the
// attempt as INCONCLUSIVE outcomes rather than surfaced as errors.
type Strategy interface {
	Name() string
	AttemptDisproof(ctx context.Context, h *hypothesis.Hypothesis, client telemetry.Client) hypothesis.DisproofAttempt
}

// Config holds the query discipline shared by all strategies.
type Config struct {
	// QueryTimeout bounds each telemetry query. Defaults to 30s.
	QueryTimeout time.Duration
	// MaxRetries is how many times a transient query failure is retried.
	// Defaults to 2. Non-transient failures are never retried.
	MaxRetries int
	// RetryBackoff is the base backoff between retries, doubled per retry.
	// Defaults to 500ms.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = telemetry.DefaultQueryTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// runQuery executes fn with a per-attempt timeout and bounded retry on
// transient failures. Returns the accumulated wall-clock cost in seconds
// along with fn's final error.
func runQuery(ctx context.Context, cfg Config, fn func(context.Context) error) (float64, error) {
	start := time.Now()
	var err error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return time.Since(start).Seconds(), err
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
		err = fn(attemptCtx)
		cancel()

		if err == nil {
			return time.Since(start).Seconds(), nil
		}
		if qf, ok := err.(*telemetry.QueryFailure); !ok || !qf.Transient() {
			break
		}
	}
	return time.Since(start).Seconds(), err
}

// Evidence confidence levels used by the strategies. Telemetry observations
// are first-hand, hence quality DIRECT; the confidence distinguishes a
// conclusive reading from an explanatory "could not determine" record.
const (
	observationConfidence  = 0.9
	inconclusiveConfidence = 0.3
)

// observationEvidence builds the DIRECT evidence record every attempt
// carries, summarizing what was queried and what came back.
func observationEvidence(source, interpretation, data string, supports bool) hypothesis.Evidence {
	ev, _ := hypothesis.NewEvidence(source, hypothesis.QualityDirect, observationConfidence, supports, interpretation, time.Now())
	ev.Data = data
	return ev
}

// inconclusiveEvidence builds the explanatory record for attempts that could
// not reach a verdict.
func inconclusiveEvidence(source, interpretation, data string) hypothesis.Evidence {
	ev, _ := hypothesis.NewEvidence(source, hypothesis.QualityDirect, inconclusiveConfidence, false, interpretation, time.Now())
	ev.Data = data
	return ev
}

// newAttempt assembles a completed disproof attempt.
func newAttempt(strategyName, method string, outcome hypothesis.DisproofOutcome, cost float64, evidence ...hypothesis.Evidence) hypothesis.DisproofAttempt {
	return hypothesis.DisproofAttempt{
		StrategyName: strategyName,
		Method:       method,
		Outcome:      outcome,
		Evidence:     evidence,
		Cost:         cost,
		ExecutedAt:   time.Now().UTC(),
	}
}
