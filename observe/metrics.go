package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records connection lifecycle and read metrics.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: implementations must not panic.
type Metrics interface {
	// RecordConstruct records one attempt to build a connection.
	RecordConstruct(ctx context.Context, meta ConnMeta, d time.Duration, err error)
	// RecordReset records one reset.
	RecordReset(ctx context.Context, meta ConnMeta, err error)
	// RecordRead records one read that reached the backend.
	RecordRead(ctx context.Context, meta ConnMeta, d time.Duration, err error)
	// RecordCacheLookup records whether a cached read was served from the store.
	RecordCacheLookup(ctx context.Context, meta ConnMeta, hit bool)
	// RecordRetry records one retry of a read.
	RecordRetry(ctx context.Context, meta ConnMeta, attempt int)
}

type otelMetrics struct {
	constructs    metric.Int64Counter
	constructErrs metric.Int64Counter
	constructDur  metric.Float64Histogram
	resets        metric.Int64Counter
	reads         metric.Int64Counter
	readErrs      metric.Int64Counter
	readDur       metric.Float64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	retries       metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	var m otelMetrics
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.constructs, "connection.constructs", "Connection construction attempts", "{call}"},
		{&m.constructErrs, "connection.construct.errors", "Failed connection constructions", "{error}"},
		{&m.resets, "connection.resets", "Connection resets", "{reset}"},
		{&m.reads, "connection.read.total", "Reads that reached the backend", "{call}"},
		{&m.readErrs, "connection.read.errors", "Reads that returned an error", "{error}"},
		{&m.cacheHits, "connection.cache.hits", "Reads served from the result cache", "{hit}"},
		{&m.cacheMisses, "connection.cache.misses", "Cached reads that had to call the backend", "{miss}"},
		{&m.retries, "connection.read.retries", "Read retries", "{retry}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.constructDur, err = meter.Float64Histogram(
		"connection.construct.duration_ms",
		metric.WithDescription("Connection construction duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.readDur, err = meter.Float64Histogram(
		"connection.read.duration_ms",
		metric.WithDescription("Backend read duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *otelMetrics) RecordConstruct(ctx context.Context, meta ConnMeta, d time.Duration, err error) {
	opt := metric.WithAttributes(meta.Attributes()...)
	m.constructs.Add(ctx, 1, opt)
	if err != nil {
		m.constructErrs.Add(ctx, 1, opt)
	}
	m.constructDur.Record(ctx, float64(d.Milliseconds()), opt)
}

func (m *otelMetrics) RecordReset(ctx context.Context, meta ConnMeta, err error) {
	attrs := append(meta.Attributes(), attribute.Bool("connection.reset.ok", err == nil))
	m.resets.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *otelMetrics) RecordRead(ctx context.Context, meta ConnMeta, d time.Duration, err error) {
	opt := metric.WithAttributes(meta.Attributes()...)
	m.reads.Add(ctx, 1, opt)
	if err != nil {
		m.readErrs.Add(ctx, 1, opt)
	}
	m.readDur.Record(ctx, float64(d.Milliseconds()), opt)
}

func (m *otelMetrics) RecordCacheLookup(ctx context.Context, meta ConnMeta, hit bool) {
	opt := metric.WithAttributes(meta.Attributes()...)
	if hit {
		m.cacheHits.Add(ctx, 1, opt)
		return
	}
	m.cacheMisses.Add(ctx, 1, opt)
}

func (m *otelMetrics) RecordRetry(ctx context.Context, meta ConnMeta, attempt int) {
	attrs := append(meta.Attributes(), attribute.Int("connection.retry.attempt", attempt))
	m.retries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

type nopMetrics struct{}

func (nopMetrics) RecordConstruct(context.Context, ConnMeta, time.Duration, error) {}
func (nopMetrics) RecordReset(context.Context, ConnMeta, error)                    {}
func (nopMetrics) RecordRead(context.Context, ConnMeta, time.Duration, error)      {}
func (nopMetrics) RecordCacheLookup(context.Context, ConnMeta, bool)               {}
func (nopMetrics) RecordRetry(context.Context, ConnMeta, int)                      {}

var (
	_ Metrics = (*otelMetrics)(nil)
	_ Metrics = nopMetrics{}
)
