package logging

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	SetOutput(&stdout, &stderr)
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
		_ = Initialize("info")
	})
	return &stdout, &stderr
}

func TestLevelFiltering(t *testing.T) {
	stdout, _ := captureOutput(t)
	if err := Initialize("warn"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	logger := GetLogger("test")
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	out := stdout.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below WARN were logged: %q", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("WARN message missing from output: %q", out)
	}
}

func TestErrorGoesToStderr(t *testing.T) {
	stdout, stderr := captureOutput(t)
	_ = Initialize("debug")

	logger := GetLogger("test")
	logger.Error("boom %d", 42)

	if stdout.Len() != 0 {
		t.Errorf("error written to stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "boom 42") {
		t.Errorf("error missing from stderr: %q", stderr.String())
	}
}

func TestStructuredFieldsSortedAndMerged(t *testing.T) {
	stdout, _ := captureOutput(t)
	_ = Initialize("info")

	logger := GetLogger("test").WithField("component", "runner")
	logger.InfoWithFields("attempt complete",
		Field("strategy", "temporal"),
		Field("outcome", "SURVIVED"),
	)

	out := stdout.String()
	for _, want := range []string{"component=runner", "strategy=temporal", "outcome=SURVIVED"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	// Sorted keys give deterministic ordering.
	if strings.Index(out, "component=") > strings.Index(out, "strategy=") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	stdout, _ := captureOutput(t)
	_ = Initialize("info")

	parent := GetLogger("test")
	_ = parent.WithField("child_only", "yes")
	parent.Info("from parent")

	if strings.Contains(stdout.String(), "child_only") {
		t.Errorf("parent logger picked up child field: %q", stdout.String())
	}
}

func TestContextTraceFields(t *testing.T) {
	stdout, _ := captureOutput(t)
	_ = Initialize("info")

	ctx := context.WithValue(context.Background(), TraceIDKey(), "trace-123")
	ctx = context.WithValue(ctx, SpanIDKey(), "span-456")

	GetLogger("test").WithContext(ctx).Info("traced")

	out := stdout.String()
	if !strings.Contains(out, "trace_id=trace-123") || !strings.Contains(out, "span_id=span-456") {
		t.Errorf("trace fields missing: %q", out)
	}
}

func TestComponentLevelOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		component string
		want      LogLevel
	}{
		{"exact match", map[string]string{"disproof.temporal": "debug"}, "disproof.temporal", DEBUG},
		{"wildcard match", map[string]string{"disproof.*": "warn"}, "disproof.scope", WARN},
		{"most specific wins", map[string]string{"disproof.*": "warn", "disproof.temporal": "debug"}, "disproof.temporal", DEBUG},
		{"no match", map[string]string{"disproof.*": "warn"}, "telemetry", LogLevel(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := SetComponentLevels(tt.overrides); err != nil {
				t.Fatalf("SetComponentLevels: %v", err)
			}
			defer func() { _ = SetComponentLevels(nil) }()

			if got := componentLevel(tt.component); got != tt.want {
				t.Errorf("componentLevel(%q) = %d, want %d", tt.component, got, tt.want)
			}
		})
	}
}

func TestSetComponentLevelsRejectsBadLevel(t *testing.T) {
	if err := SetComponentLevels(map[string]string{"x": "loud"}); err == nil {
		t.Error("expected error for invalid level name")
	}
}

func TestTimestampOverride(t *testing.T) {
	stdout, _ := captureOutput(t)
	_ = Initialize("info")

	t.Setenv("LOG_TIMESTAMP", "2024-01-01T00:00:00Z")
	GetLogger("test").Info("fixed time")

	if !strings.Contains(stdout.String(), "[2024-01-01T00:00:00Z]") {
		t.Errorf("timestamp override not applied: %q", stdout.String())
	}
}

func TestFatalUsesExitFunc(t *testing.T) {
	_, _ = captureOutput(t)
	_ = Initialize("info")

	exitCode := -1
	exitFunc = func(code int) { exitCode = code }
	defer func() { exitFunc = os.Exit }()

	GetLogger("test").Fatal("unrecoverable")
	if exitCode != 1 {
		t.Errorf("Fatal exit code = %d, want 1", exitCode)
	}
}
