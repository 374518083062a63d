package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/refutehq/refute/internal/config"
	"github.com/refutehq/refute/internal/disproof"
	"github.com/refutehq/refute/internal/investigation"
	"github.com/refutehq/refute/internal/logging"
	"github.com/refutehq/refute/internal/metrics"
	"github.com/refutehq/refute/internal/reasoning"
	"github.com/refutehq/refute/internal/telemetry"
	"github.com/refutehq/refute/internal/tracing"
)

var (
	description     string
	affectedSystems []string
	symptoms        []string
	recentChanges   []string
	outputFormat    string
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Run one investigation over the given incident observations",
	Long: `Investigate asks the reasoning provider for a root-cause hypothesis,
runs every configured disproof strategy against live telemetry and prints
the settled verdict with its full evidence trail.`,
	Run: runInvestigate,
}

func init() {
	investigateCmd.Flags().StringVar(&description, "description", "", "Free-text incident summary (required)")
	investigateCmd.Flags().StringSliceVar(&affectedSystems, "affected-system", nil, "System showing symptoms (repeatable)")
	investigateCmd.Flags().StringSliceVar(&symptoms, "symptom", nil, "Observed anomaly (repeatable)")
	investigateCmd.Flags().StringSliceVar(&recentChanges, "recent-change", nil, "Deploy or config change near the incident (repeatable)")
	investigateCmd.Flags().StringVar(&outputFormat, "output", "text", "Output format: text or json")
	_ = investigateCmd.MarkFlagRequired("description")
}

func runInvestigate(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	HandleError(err, "Failed to load configuration")
	HandleError(setupLog(cfg.LogLevel), "Failed to initialize logging")
	logger := logging.GetLogger("cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.NewProvider(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		TLSCAPath:   cfg.Tracing.TLSCAPath,
		TLSInsecure: cfg.Tracing.TLSInsecure,
	})
	HandleError(err, "Failed to initialize tracing")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed: %v", err)
		}
	}()
	observer := tracer.Observer("refute")

	m := metrics.New(prometheus.DefaultRegisterer)

	client, err := telemetry.NewHTTPClient(telemetry.HTTPConfig{
		BaseURL:         cfg.Telemetry.BaseURL,
		Timeout:         cfg.QueryTimeout(),
		RatePerSecond:   cfg.Telemetry.RatePerSecond,
		Burst:           cfg.Telemetry.Burst,
		MetricCacheSize: cfg.Telemetry.MetricCacheSize,
	}, m)
	HandleError(err, "Failed to create telemetry client")

	provider, err := buildProvider(cfg)
	HandleError(err, "Failed to create reasoning provider")

	runnerOpts := []investigation.RunnerOption{
		investigation.WithMetrics(m),
		investigation.WithObserver(observer),
	}
	if cfg.Audit.Path != "" {
		trail, err := investigation.NewAuditTrail(cfg.Audit.Path)
		HandleError(err, "Failed to open audit trail")
		defer func() {
			if err := trail.Close(); err != nil {
				logger.Warn("audit trail close failed: %v", err)
			}
		}()
		runnerOpts = append(runnerOpts, investigation.WithAuditTrail(trail))
	}

	runner, err := investigation.NewRunner(
		investigation.RunnerConfig{
			BudgetSeconds:       cfg.Investigation.BudgetSeconds,
			ValidationThreshold: cfg.Investigation.ValidationThreshold,
			PreviewBytes:        cfg.Audit.PreviewBytes,
		},
		provider, client, buildStrategies(cfg, observer), runnerOpts...)
	HandleError(err, "Failed to create investigation runner")

	report, err := runner.Run(ctx, reasoning.Observations{
		Description:     description,
		AffectedSystems: affectedSystems,
		Symptoms:        symptoms,
		RecentChanges:   recentChanges,
	})
	HandleError(err, "Investigation failed")

	HandleError(printReport(report, outputFormat), "Failed to print report")
}

func buildProvider(cfg *config.Config) (reasoning.Provider, error) {
	switch cfg.Reasoning.Provider {
	case "anthropic":
		return reasoning.NewAnthropicProvider(reasoning.AnthropicConfig{
			Model:     cfg.Reasoning.Model,
			MaxTokens: cfg.Reasoning.MaxTokens,
		}), nil
	case "mock":
		return reasoning.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Reasoning.Provider)
	}
}

func buildStrategies(cfg *config.Config, observer tracing.Observer) []disproof.Strategy {
	strategyCfg := disproof.Config{
		QueryTimeout: cfg.QueryTimeout(),
		MaxRetries:   cfg.Strategies.MaxRetries,
	}
	return []disproof.Strategy{
		disproof.NewTemporalContradiction(strategyCfg).
			WithBuffer(cfg.TemporalBuffer()).
			WithObserver(observer),
		disproof.NewScopeVerification(strategyCfg).
			WithTolerance(cfg.Strategies.ScopeTolerancePoints).
			WithObserver(observer),
		disproof.NewMetricThresholdValidation(strategyCfg).
			WithEqualityTolerance(cfg.Strategies.EqualityTolerance).
			WithObserver(observer),
	}
}

func printReport(report *investigation.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report.Record)
	case "text":
		snap := report.Hypothesis
		fmt.Printf("Hypothesis: %s\n", snap.Statement)
		fmt.Printf("Status:     %s\n", snap.Status)
		fmt.Printf("Confidence: %.0f%% (initial %.0f%%)\n",
			snap.CurrentConfidence*100, snap.InitialConfidence*100)
		fmt.Printf("Reasoning:  %s\n", snap.ConfidenceReasoning)
		fmt.Printf("\nDisproof attempts (%d, %.1fs telemetry cost):\n", len(report.Attempts), report.TotalCost)
		for _, a := range report.Attempts {
			fmt.Printf("  %-32s %s\n", a.Strategy, a.Outcome)
		}
		if report.BudgetExhausted {
			fmt.Println("\nNote: investigation budget was exhausted before all strategies ran.")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", format)
	}
}
