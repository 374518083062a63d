package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/refutehq/refute/internal/config"
	"github.com/refutehq/refute/internal/disproof"
	"github.com/refutehq/refute/internal/investigation"
	"github.com/refutehq/refute/internal/reasoning"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run two canned investigations against in-memory telemetry",
	Long: `Demo runs the full investigation pipeline offline: a hypothesis that
survives every disproof strategy, and one the temporal check disproves
because the anomaly predates the claimed cause.`,
	Run: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) {
	HandleError(setupLog("info"), "Failed to initialize logging")

	now := time.Now().UTC().Truncate(time.Minute)
	deployTime := now.Add(-90 * time.Minute)
	onsetTime := deployTime.Add(5 * time.Minute)
	windowEnd := now

	fmt.Println("=== Scenario 1: hypothesis survives all strategies ===")
	runDemoScenario(demoScenario{
		proposal: &reasoning.Proposal{
			Statement:       "the 14:25 checkout-api deploy exhausted the database connection pool",
			Confidence:      0.7,
			AffectedSystems: []string{"checkout-api"},
			Metadata: map[string]string{
				disproof.MetaClaimedCauseTime: deployTime.Format(time.RFC3339),
				disproof.MetaSymptomOnsetTime: onsetTime.Format(time.RFC3339),
				disproof.MetaCausalMetric:     "error_rate:checkout-api",
				disproof.MetaIncidentStart:    deployTime.Format(time.RFC3339),
				disproof.MetaIncidentEnd:      windowEnd.Format(time.RFC3339),
				disproof.MetaClaimedScope:     "MOST",
				disproof.MetaScopeSelector:    "service:checkout-api",
				disproof.MetaScopePopulation:  "20",
				disproof.MetaClaimedMetric:    "error_rate:checkout-api",
				disproof.MetaClaimedOperator:  ">",
				disproof.MetaClaimedThreshold: "5",
			},
		},
		// Flat baseline before the deploy, a spike right after it.
		anomalyStart:  onsetTime,
		affectedCount: 17,
	})

	fmt.Println()
	fmt.Println("=== Scenario 2: anomaly predates the claimed cause ===")
	runDemoScenario(demoScenario{
		proposal: &reasoning.Proposal{
			Statement:       "the cache flush at 14:25 caused the checkout error spike",
			Confidence:      0.8,
			AffectedSystems: []string{"checkout-api"},
			Metadata: map[string]string{
				disproof.MetaClaimedCauseTime: deployTime.Format(time.RFC3339),
				disproof.MetaSymptomOnsetTime: onsetTime.Format(time.RFC3339),
				disproof.MetaCausalMetric:     "error_rate:checkout-api",
			},
		},
		// The spike began 2.5 hours before the claimed cause.
		anomalyStart:  deployTime.Add(-150 * time.Minute),
		affectedCount: 17,
	})
}

type demoScenario struct {
	proposal      *reasoning.Proposal
	anomalyStart  time.Time
	affectedCount int
}

func runDemoScenario(sc demoScenario) {
	mock := telemetry.NewMock()
	seedErrorRate(mock, "error_rate:checkout-api", sc.anomalyStart)
	mock.SetAffectedCount("service:checkout-api", sc.affectedCount)

	cfg := config.Default()
	strategies := buildStrategies(cfg, tracing.Noop())

	runner, err := investigation.NewRunner(
		investigation.RunnerConfig{
			// Strategy evidence stays inside the attempts, so a surviving
			// hypothesis tops out at initial*0.3 plus the survival bonus.
			ValidationThreshold: 0.3,
		},
		reasoning.NewMockProvider(sc.proposal), mock, strategies)
	HandleError(err, "Failed to create demo runner")

	report, err := runner.Run(context.Background(), reasoning.Observations{
		Description:     "checkout error rate spiked",
		AffectedSystems: []string{"checkout-api"},
	})
	HandleError(err, "Demo investigation failed")
	HandleError(printReport(report, "text"), "Failed to print report")
}

// seedErrorRate builds four hours of per-minute samples ending now: a 2%
// baseline jumping to 45% at anomalyStart.
func seedErrorRate(mock *telemetry.Mock, selector string, anomalyStart time.Time) {
	start := time.Now().UTC().Add(-4 * time.Hour).Truncate(time.Minute)
	values := make([]float64, 0, 240)
	for i := 0; i < 240; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		if ts.Before(anomalyStart) {
			values = append(values, 2.0)
		} else {
			values = append(values, 45.0)
		}
	}
	mock.SetSeries(selector, telemetry.Points(start, time.Minute, values...))
}
