// Package tracing provides the observability seam for the confidence engine
// and disproof strategies. The core only ever talks to the Observer interface;
// production wiring supplies an OpenTelemetry-backed implementation while
// tests use the no-op observer.
package tracing

import "context"

// Attr is a key/value attribute attached to a span.
type Attr struct {
	Key   string
	Value interface{}
}

// String builds a string attribute.
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Float64 builds a float attribute.
func Float64(key string, value float64) Attr {
	return Attr{Key: key, Value: value}
}

// Int builds an integer attribute.
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Bool builds a boolean attribute.
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Span is one observed operation. End must be called exactly once.
type Span interface {
	SetAttr(attrs ...Attr)
	RecordError(err error)
	End()
}

// Observer starts spans around engine operations. Implementations must be
// safe for concurrent use.
type Observer interface {
	StartSpan(ctx context.Context, name string, attrs ...Attr) (context.Context, Span)
}

type noopObserver struct{}

type noopSpan struct{}

func (noopSpan) SetAttr(...Attr)   {}
func (noopSpan) RecordError(error) {}
func (noopSpan) End()              {}

func (noopObserver) StartSpan(ctx context.Context, _ string, _ ...Attr) (context.Context, Span) {
	return ctx, noopSpan{}
}

// Noop returns an observer that records nothing.
func Noop() Observer {
	return noopObserver{}
}
