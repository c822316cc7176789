package observe

import (
	"context"
	"time"
)

// Middleware instruments backend reads with a span, metrics and a debug log.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: errors from the wrapped call are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer's primitives.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return NewMiddleware(nil, nil, nil), nil
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the middleware's tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the middleware's metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Read runs fn as one backend read of meta.
func (m *Middleware) Read(ctx context.Context, meta ConnMeta, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, "read", meta)
	start := time.Now()

	err := fn(ctx)

	d := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordRead(ctx, meta, d, err)

	log := m.logger.WithConnection(meta)
	if err != nil {
		log.Debug(ctx, "read failed", F("duration_ms", float64(d.Milliseconds())), Err(err))
	} else {
		log.Debug(ctx, "read completed", F("duration_ms", float64(d.Milliseconds())))
	}
	return err
}

// Construct runs fn as one construction of meta.
func (m *Middleware) Construct(ctx context.Context, meta ConnMeta, fn func(context.Context) error) error {
	ctx, span := m.tracer.StartSpan(ctx, "construct", meta)
	start := time.Now()

	err := fn(ctx)

	d := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordConstruct(ctx, meta, d, err)

	log := m.logger.WithConnection(meta)
	if err != nil {
		log.Error(ctx, "connection construction failed", Err(err))
	} else {
		log.Info(ctx, "connection constructed", F("duration_ms", float64(d.Milliseconds())))
	}
	return err
}
