package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refutehq/refute/internal/config"
	"github.com/refutehq/refute/internal/tracing"
)

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name          string
		defaultLevel  string
		flags         []string
		wantDefault   string
		wantOverrides map[string]string
		wantErr       bool
	}{
		{
			name:          "no flags keeps config default",
			defaultLevel:  "info",
			wantDefault:   "info",
			wantOverrides: map[string]string{},
		},
		{
			name:          "bare level replaces default",
			defaultLevel:  "info",
			flags:         []string{"debug"},
			wantDefault:   "debug",
			wantOverrides: map[string]string{},
		},
		{
			name:          "component override",
			defaultLevel:  "info",
			flags:         []string{"disproof.*=debug", "telemetry=warn"},
			wantDefault:   "info",
			wantOverrides: map[string]string{"disproof.*": "debug", "telemetry": "warn"},
		},
		{
			name:          "explicit default key",
			defaultLevel:  "info",
			flags:         []string{"default=error"},
			wantDefault:   "error",
			wantOverrides: map[string]string{},
		},
		{
			name:         "empty component name",
			defaultLevel: "info",
			flags:        []string{"=debug"},
			wantErr:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDefault, gotOverrides, err := parseLogLevelFlags(tt.defaultLevel, tt.flags)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, gotDefault)
			assert.Equal(t, tt.wantOverrides, gotOverrides)
		})
	}
}

func TestBuildStrategiesOrder(t *testing.T) {
	cfg := config.Default()
	strategies := buildStrategies(cfg, tracing.Noop())
	require.Len(t, strategies, 3)
	assert.Equal(t, "temporal_contradiction", strategies[0].Name())
	assert.Equal(t, "scope_verification", strategies[1].Name())
	assert.Equal(t, "metric_threshold_validation", strategies[2].Name())
}
