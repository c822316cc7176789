package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestMiddleware_Read(t *testing.T) {
	tr, rec := newRecordingTracer()
	m, reader := newTestMetrics(t)
	var buf bytes.Buffer
	mw := NewMiddleware(tr, m, NewLoggerWithWriter("debug", &buf))
	meta := ConnMeta{Kind: "sql", Name: "pets_db", Method: "query"}

	calls := 0
	err := mw.Read(context.Background(), meta, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times", calls)
	}
	if got := rec.Ended()[0].Name(); got != "connection.read.sql.query" {
		t.Errorf("span = %q", got)
	}
	if got := counterValue(t, collect(t, reader), "connection.read.total"); got != 1 {
		t.Errorf("reads = %d", got)
	}
	if !strings.Contains(buf.String(), `"msg":"read completed"`) {
		t.Errorf("missing debug log: %s", buf.String())
	}
}

func TestMiddleware_ReadReturnsErrorUnchanged(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	want := errors.New("boom")

	err := mw.Read(context.Background(), ConnMeta{Name: "x"}, func(context.Context) error { return want })
	if err != want {
		t.Errorf("err = %v, want identical %v", err, want)
	}
}

func TestMiddleware_ReadPropagatesSpanContext(t *testing.T) {
	tr, _ := newRecordingTracer()
	mw := NewMiddleware(tr, nil, nil)

	_ = mw.Read(context.Background(), ConnMeta{Name: "x"}, func(ctx context.Context) error {
		if !traceSpanValid(ctx) {
			t.Error("fn context carries no span")
		}
		return nil
	})
}

func TestMiddleware_Construct(t *testing.T) {
	m, reader := newTestMetrics(t)
	var buf bytes.Buffer
	mw := NewMiddleware(nil, m, NewLoggerWithWriter("info", &buf))
	meta := ConnMeta{Kind: "sql", Name: "db"}

	_ = mw.Construct(context.Background(), meta, func(context.Context) error { return nil })
	err := mw.Construct(context.Background(), meta, func(context.Context) error { return errors.New("refused") })
	if err == nil {
		t.Fatal("expected error")
	}

	rm := collect(t, reader)
	if got := counterValue(t, rm, "connection.constructs"); got != 2 {
		t.Errorf("constructs = %d", got)
	}
	if got := counterValue(t, rm, "connection.construct.errors"); got != 1 {
		t.Errorf("construct errors = %d", got)
	}
	out := buf.String()
	if !strings.Contains(out, "connection constructed") || !strings.Contains(out, "connection construction failed") {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	mw, err := MiddlewareFromObserver(NewObserverFrom(tp, mp, nil))
	if err != nil {
		t.Fatalf("MiddlewareFromObserver: %v", err)
	}
	_ = mw.Read(context.Background(), ConnMeta{Kind: "files", Name: "landing", Method: "read_text"}, func(context.Context) error { return nil })

	if len(rec.Ended()) != 1 {
		t.Errorf("expected 1 span, got %d", len(rec.Ended()))
	}
	if got := counterValue(t, collect(t, reader), "connection.read.total"); got != 1 {
		t.Errorf("reads = %d", got)
	}

	nilMW, err := MiddlewareFromObserver(nil)
	if err != nil || nilMW == nil {
		t.Fatalf("MiddlewareFromObserver(nil) = %v, %v", nilMW, err)
	}
}
