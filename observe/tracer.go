package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Tracer starts spans for connection operations.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span named meta.SpanName(op).
	StartSpan(ctx context.Context, op string, meta ConnMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording err if non-nil.
	EndSpan(span trace.Span, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &otelTracer{tracer: t}
}

func (t *otelTracer) StartSpan(ctx context.Context, op string, meta ConnMeta) (context.Context, trace.Span) {
	attrs := append(meta.Attributes(), attribute.Bool("connection.error", false))
	return t.tracer.Start(ctx, meta.SpanName(op),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *otelTracer) EndSpan(span trace.Span, err error) {
	endSpan(span, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("connection.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans are discarded.
func NopTracer() Tracer {
	return &otelTracer{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
