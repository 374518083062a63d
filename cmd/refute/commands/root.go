package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/refutehq/refute/internal/logging"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath    string
	logLevelFlags []string
)

var rootCmd = &cobra.Command{
	Use:   "refute",
	Short: "Refute - falsification-driven incident investigation",
	Long: `Refute investigates incident hypotheses by actively trying to disprove
them against telemetry. A hypothesis earns confidence only by surviving
disproof attempts; one demonstrated contradiction settles the verdict.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level", nil,
		"Log level overrides. Plain level sets the default, component=level overrides one component.\n"+
			"Examples: --log-level debug, --log-level disproof.*=debug --log-level telemetry=warn")

	rootCmd.AddCommand(investigateCmd)
	rootCmd.AddCommand(demoCmd)
}

// setupLog initializes logging from the config default and CLI overrides.
func setupLog(defaultLevel string) error {
	level, componentLevels, err := parseLogLevelFlags(defaultLevel, logLevelFlags)
	if err != nil {
		return err
	}
	return logging.Initialize(level, componentLevels)
}

// parseLogLevelFlags splits flag values into the default level and
// per-component overrides. A bare level ("debug") replaces the default;
// "name=level" entries become overrides.
func parseLogLevelFlags(defaultLevel string, flags []string) (string, map[string]string, error) {
	componentLevels := make(map[string]string)
	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			defaultLevel = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		name, level := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" || level == "" {
			return "", nil, fmt.Errorf("invalid --log-level value %q, expected component=level", flag)
		}
		if name == "default" {
			defaultLevel = level
			continue
		}
		componentLevels[name] = level
	}
	return defaultLevel, componentLevels, nil
}

// HandleError prints the error and exits.
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}
