package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracer(tp.Tracer("test")), rec
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_SpanNameAndAttributes(t *testing.T) {
	tr, rec := newRecordingTracer()
	meta := ConnMeta{Kind: "sql", Name: "pets_db", Method: "query"}

	_, span := tr.StartSpan(context.Background(), "read", meta)
	tr.EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "connection.read.sql.query" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v", s.Status().Code)
	}
	if v, ok := spanAttr(s, "connection.name"); !ok || v.AsString() != "pets_db" {
		t.Errorf("connection.name = %v", v.AsString())
	}
	if v, _ := spanAttr(s, "connection.error"); v.AsBool() {
		t.Error("connection.error should be false")
	}
}

func TestTracer_RecordsError(t *testing.T) {
	tr, rec := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), "construct", ConnMeta{Kind: "sql", Name: "db"})
	tr.EndSpan(span, errors.New("connection refused"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
	if s.Status().Description != "connection refused" {
		t.Errorf("description = %q", s.Status().Description)
	}
	if v, _ := spanAttr(s, "connection.error"); !v.AsBool() {
		t.Error("connection.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestNopTracer(t *testing.T) {
	tr := NopTracer()
	ctx, span := tr.StartSpan(context.Background(), "read", ConnMeta{Name: "x"})
	if ctx == nil || span == nil {
		t.Fatal("NopTracer returned nil")
	}
	tr.EndSpan(span, errors.New("ignored"))

	if NewTracer(nil) == nil {
		t.Error("NewTracer(nil) returned nil")
	}
}

func traceSpanValid(ctx context.Context) bool {
	return trace.SpanContextFromContext(ctx).IsValid()
}
