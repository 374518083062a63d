package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// exitFunc is what Fatal calls; overridable for tests.
	exitFunc = os.Exit

	outputMu  sync.Mutex
	outStream io.Writer = os.Stdout
	errStream io.Writer = os.Stderr
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// SetOutput redirects log output, primarily for tests. Passing nil keeps
// the current stream.
func SetOutput(stdout, stderr io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if stdout != nil {
		outStream = stdout
	}
	if stderr != nil {
		errStream = stderr
	}
}

func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	l.write(level, fmt.Sprintf(msg, args...), l.mergedFields(nil))
}

func (l *Logger) logFields(level LogLevel, msg string, fields ...LogField) {
	l.write(level, msg, l.mergedFields(fields))
}

// mergedFields combines context fields, the logger's persistent fields and
// call-site fields, later sources winning on key collisions.
func (l *Logger) mergedFields(callFields []LogField) map[string]interface{} {
	contextFields := extractContextFields(l.ctx)
	if contextFields == nil && len(l.fields) == 0 && len(callFields) == 0 {
		return nil
	}

	merged := make(map[string]interface{})
	for k, v := range contextFields {
		merged[k] = v
	}
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range callFields {
		merged[f.Key] = f.Value
	}
	return merged
}

// write renders one log line. ERROR and FATAL go to stderr, everything else
// to stdout. Fields are sorted for stable output.
func (l *Logger) write(level LogLevel, msg string, fields map[string]interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s: %s", timestamp(), levelNames[level], l.name, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteByte('\n')

	outputMu.Lock()
	defer outputMu.Unlock()
	if level >= ERROR {
		io.WriteString(errStream, b.String())
	} else {
		io.WriteString(outStream, b.String())
	}
}

// timestamp returns the RFC3339 line timestamp. The LOG_TIMESTAMP env var
// overrides it for deterministic test output.
func timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey returns the context key under which a trace ID is read.
func TraceIDKey() interface{} { return traceIDKey }

// SpanIDKey returns the context key under which a span ID is read.
func SpanIDKey() interface{} { return spanIDKey }

func extractContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}

	fields := make(map[string]interface{})
	if traceID := ctx.Value(traceIDKey); traceID != nil {
		fields["trace_id"] = traceID
	}
	if spanID := ctx.Value(spanIDKey); spanID != nil {
		fields["span_id"] = spanID
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
