package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Scope identifies a cache surface for telemetry purposes.
type Scope struct {
	Store     string // Sub-store name (search, browse, facts)
	Namespace string // Query namespace (tool name, "browse", fact category)
}

// SpanName returns the deterministic span name for a cached invocation.
// Format: cache.invoke.<namespace> or cache.invoke.<store>
func (s Scope) SpanName() string {
	if s.Namespace != "" {
		return "cache.invoke." + s.Namespace
	}
	return "cache.invoke." + s.Store
}

// Tracer wraps OpenTelemetry tracing with cache-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndInvoke must be best-effort and must not panic.
type Tracer interface {
	// StartInvoke starts a span covering a cache lookup plus, on a miss,
	// the wrapped tool invocation.
	StartInvoke(ctx context.Context, scope Scope) (context.Context, trace.Span)

	// EndInvoke ends the span, recording the hit outcome and any error.
	EndInvoke(span trace.Span, hit bool, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartInvoke starts a new span with the scope as attributes.
func (t *tracerImpl) StartInvoke(ctx context.Context, scope Scope) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.store", scope.Store),
		attribute.Bool("cache.hit", false), // Updated in EndInvoke
	}
	if scope.Namespace != "" {
		attrs = append(attrs, attribute.String("cache.namespace", scope.Namespace))
	}

	ctx, span := t.tracer.Start(ctx, scope.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndInvoke ends the span, recording the hit flag and error status.
func (t *tracerImpl) EndInvoke(span trace.Span, hit bool, err error) {
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer that produces no-op spans.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

func (t *noopTracer) StartInvoke(ctx context.Context, scope Scope) (context.Context, trace.Span) {
	return t.noop.Start(ctx, scope.SpanName())
}

func (t *noopTracer) EndInvoke(span trace.Span, hit bool, err error) {
	span.End()
}

var _ Tracer = (*tracerImpl)(nil)
var _ Tracer = (*noopTracer)(nil)
