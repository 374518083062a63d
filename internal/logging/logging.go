// Package logging provides leveled, structured logging for the refute
// engine.
//
// Get a named logger per component and log either printf-style or with
// structured fields:
//
//	logger := logging.GetLogger("disproof.temporal")
//	logger.Info("window resolved to %s", window)
//	logger.InfoWithFields("attempt complete",
//	    logging.Field("strategy", name),
//	    logging.Field("outcome", outcome),
//	)
//
// Loggers are immutable; WithField, WithFields and WithContext return new
// instances and are safe to share across goroutines. A context attached via
// WithContext contributes trace_id and span_id fields when present.
package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// LogLevel orders message severities.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// LogField is a single structured key-value pair.
type LogField struct {
	Key   string
	Value interface{}
}

// Field builds a LogField.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger writes leveled log lines for one named component.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

var (
	globalLevel = INFO
	levelMu     sync.RWMutex

	componentLevels = make(map[string]LogLevel)
)

// Initialize sets the default level for loggers created afterwards and
// optional per-component overrides (exact names or "prefix.*" patterns).
func Initialize(levelStr string, componentOverrides ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	levelMu.Lock()
	globalLevel = level
	componentLevels = make(map[string]LogLevel)
	levelMu.Unlock()

	if len(componentOverrides) > 0 && componentOverrides[0] != nil {
		return SetComponentLevels(componentOverrides[0])
	}
	return nil
}

// SetComponentLevels replaces the per-component level overrides.
func SetComponentLevels(levels map[string]string) error {
	parsed := make(map[string]LogLevel, len(levels))
	for name, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for component %q: %w", name, err)
		}
		parsed[name] = level
	}

	levelMu.Lock()
	componentLevels = parsed
	levelMu.Unlock()
	return nil
}

// GetLogger returns a logger for the named component at the current
// default level.
func GetLogger(name string) *Logger {
	levelMu.RLock()
	level := globalLevel
	levelMu.RUnlock()

	return &Logger{
		level:  level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// componentLevel resolves the effective override for a component name.
// Exact matches win; otherwise the most specific matching wildcard pattern
// applies. Returns -1 when no override matches.
func componentLevel(name string) LogLevel {
	levelMu.RLock()
	defer levelMu.RUnlock()

	if level, ok := componentLevels[name]; ok {
		return level
	}

	var matches []string
	for pattern := range componentLevels {
		if strings.HasSuffix(pattern, ".*") &&
			strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
			matches = append(matches, pattern)
		}
	}
	if len(matches) == 0 {
		return LogLevel(-1)
	}
	sort.Slice(matches, func(i, j int) bool { return len(matches[i]) > len(matches[j]) })
	return componentLevels[matches[0]]
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if override := componentLevel(l.name); override >= 0 {
		return level >= override
	}
	return level >= l.level
}

// WithName returns a logger with a different component name.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{level: l.level, name: name, fields: make(map[string]interface{}), ctx: l.ctx}
}

// WithField returns a logger carrying an additional persistent field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	next := l.clone()
	next.fields[key] = value
	return next
}

// WithFields returns a logger carrying additional persistent fields.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	next := l.clone()
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

// WithContext returns a logger that extracts trace_id and span_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	next := l.clone()
	next.ctx = ctx
	return next
}

func (l *Logger) clone() *Logger {
	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{level: l.level, name: l.name, fields: fields, ctx: l.ctx}
}

// Debug logs at DEBUG with printf formatting.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs at INFO with printf formatting.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs at WARN with printf formatting.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs at ERROR with printf formatting.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// ErrorWithErr logs an error message with the error appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(ERROR, msg+": %v", args...)
	}
}

// Fatal logs at FATAL and terminates the process with exit code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// DebugWithFields logs at DEBUG with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logFields(DEBUG, msg, fields...)
	}
}

// InfoWithFields logs at INFO with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logFields(INFO, msg, fields...)
	}
}

// WarnWithFields logs at WARN with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logFields(WARN, msg, fields...)
	}
}

// ErrorWithFields logs at ERROR with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logFields(ERROR, msg, fields...)
	}
}

// FatalWithFields logs at FATAL with structured fields and exits.
func (l *Logger) FatalWithFields(msg string, fields ...LogField) {
	if l.shouldLog(FATAL) {
		l.logFields(FATAL, msg, fields...)
		exitFunc(1)
	}
}

func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level %q (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}
