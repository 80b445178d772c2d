// Package tracer provides a small tracing abstraction for the wallet module.
//
// Services depend on the Tracer interface instead of OpenTelemetry, so tests
// run with NoopTracer and production wires OTelTracer.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span and returns a context carrying it.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanReconcile, tracer.String(tracer.AttrAddress, addr))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanRegister   = "wallet.register"
	SpanReconcile  = "wallet.reconcile"
	SpanOracleRead = "wallet.oracle.read"
)

// Attribute keys.
const (
	AttrAddress         = "wallet.address"
	AttrCreated         = "wallet.created"
	AttrMatched         = "reconcile.matched"
	AttrOutcome         = "reconcile.outcome"
	AttrOracleAttempts  = "oracle.attempts"
	AttrOracleCategory  = "oracle.error_category"
	AttrOracleAnchored  = "oracle.anchored"
	AttrCircuitState    = "oracle.circuit_state"
	AttrFingerprintKind = "fingerprint.format"
)

// Event names.
const (
	EventOracleRetry   = "oracle.retry"
	EventEventEmitted  = "event.emitted"
	EventCircuitOpened = "oracle.circuit_opened"
)
