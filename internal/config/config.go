// Package config loads and validates the engine configuration from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the investigation engine.
type Config struct {
	// LogLevel is the default logging level (debug, info, warn, error).
	LogLevel string `yaml:"logLevel"`

	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Reasoning     ReasoningConfig     `yaml:"reasoning"`
	Strategies    StrategiesConfig    `yaml:"strategies"`
	Investigation InvestigationConfig `yaml:"investigation"`
	Audit         AuditConfig         `yaml:"audit"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// TelemetryConfig configures the telemetry backend client.
type TelemetryConfig struct {
	// BaseURL is the telemetry API endpoint.
	BaseURL string `yaml:"baseUrl"`

	// QueryTimeoutSeconds bounds each individual query.
	QueryTimeoutSeconds int `yaml:"queryTimeoutSeconds"`

	// RatePerSecond limits outgoing queries; zero disables limiting.
	RatePerSecond float64 `yaml:"ratePerSecond"`

	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst"`

	// MetricCacheSize is the number of completed-window metric queries kept
	// in the LRU cache.
	MetricCacheSize int `yaml:"metricCacheSize"`
}

// ReasoningConfig configures the hypothesis provider.
type ReasoningConfig struct {
	// Provider selects the implementation: "anthropic" or "mock".
	Provider string `yaml:"provider"`

	// Model is the model identifier for API-backed providers.
	Model string `yaml:"model"`

	// MaxTokens caps the response size.
	MaxTokens int `yaml:"maxTokens"`
}

// StrategiesConfig tunes the disproof strategies.
type StrategiesConfig struct {
	// TemporalBufferMinutes absorbs clock skew in temporal ordering checks.
	TemporalBufferMinutes int `yaml:"temporalBufferMinutes"`

	// ScopeTolerancePoints is the allowed claimed-vs-observed gap in
	// percentage points.
	ScopeTolerancePoints float64 `yaml:"scopeTolerancePoints"`

	// EqualityTolerance is the relative tolerance for == threshold claims.
	EqualityTolerance float64 `yaml:"equalityTolerance"`

	// MaxRetries is the number of retries after a failed transient query.
	MaxRetries int `yaml:"maxRetries"`
}

// InvestigationConfig bounds a single investigation run.
type InvestigationConfig struct {
	// BudgetSeconds caps the summed query cost across strategies; zero
	// means unbounded.
	BudgetSeconds float64 `yaml:"budgetSeconds"`

	// ValidationThreshold is the confidence at which a fully surviving
	// hypothesis is marked validated.
	ValidationThreshold float64 `yaml:"validationThreshold"`
}

// AuditConfig configures the investigation audit trail.
type AuditConfig struct {
	// Path is the JSONL audit file; empty disables the trail.
	Path string `yaml:"path"`

	// PreviewBytes bounds raw evidence payload previews in exported records.
	PreviewBytes int `yaml:"previewBytes"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	TLSCAPath   string `yaml:"tlsCaPath"`
	TLSInsecure bool   `yaml:"tlsInsecure"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			QueryTimeoutSeconds: 30,
			RatePerSecond:       10,
			Burst:               5,
			MetricCacheSize:     256,
		},
		Reasoning: ReasoningConfig{
			Provider:  "anthropic",
			MaxTokens: 2048,
		},
		Strategies: StrategiesConfig{
			TemporalBufferMinutes: 5,
			ScopeTolerancePoints:  15,
			EqualityTolerance:     0.05,
			MaxRetries:            2,
		},
		Investigation: InvestigationConfig{
			ValidationThreshold: 0.8,
		},
		Audit: AuditConfig{
			PreviewBytes: 256,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return NewConfigError(fmt.Sprintf("logLevel %q is not one of debug, info, warn, error, fatal", c.LogLevel))
	}

	if c.Telemetry.QueryTimeoutSeconds < 1 {
		return NewConfigError("telemetry.queryTimeoutSeconds must be at least 1")
	}
	if c.Telemetry.RatePerSecond < 0 {
		return NewConfigError("telemetry.ratePerSecond must not be negative")
	}
	if c.Telemetry.MetricCacheSize < 0 {
		return NewConfigError("telemetry.metricCacheSize must not be negative")
	}

	switch c.Reasoning.Provider {
	case "anthropic", "mock":
	default:
		return NewConfigError(fmt.Sprintf("reasoning.provider %q is not one of anthropic, mock", c.Reasoning.Provider))
	}
	if c.Reasoning.MaxTokens < 1 {
		return NewConfigError("reasoning.maxTokens must be at least 1")
	}

	if c.Strategies.TemporalBufferMinutes < 0 {
		return NewConfigError("strategies.temporalBufferMinutes must not be negative")
	}
	if c.Strategies.ScopeTolerancePoints < 0 || c.Strategies.ScopeTolerancePoints > 100 {
		return NewConfigError("strategies.scopeTolerancePoints must be between 0 and 100")
	}
	if c.Strategies.EqualityTolerance < 0 || c.Strategies.EqualityTolerance >= 1 {
		return NewConfigError("strategies.equalityTolerance must be in [0, 1)")
	}
	if c.Strategies.MaxRetries < 0 {
		return NewConfigError("strategies.maxRetries must not be negative")
	}

	if c.Investigation.BudgetSeconds < 0 {
		return NewConfigError("investigation.budgetSeconds must not be negative")
	}
	if c.Investigation.ValidationThreshold < 0 || c.Investigation.ValidationThreshold > 1 {
		return NewConfigError("investigation.validationThreshold must be in [0, 1]")
	}

	if c.Audit.PreviewBytes < 0 {
		return NewConfigError("audit.previewBytes must not be negative")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return NewConfigError("tracing.endpoint must be set when tracing is enabled")
	}

	return nil
}

// QueryTimeout returns the telemetry query timeout as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Telemetry.QueryTimeoutSeconds) * time.Second
}

// TemporalBuffer returns the temporal clock-skew buffer as a duration.
func (c *Config) TemporalBuffer() time.Duration {
	return time.Duration(c.Strategies.TemporalBufferMinutes) * time.Minute
}

// ConfigError represents a configuration error.
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return e.message
}
