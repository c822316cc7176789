package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"valid minimal", Config{ServiceName: "svc"}, nil},
		{"missing service", Config{}, ErrMissingServiceName},
		{"bad tracing exporter", Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "jaeger"}}, ErrInvalidTracingExporter},
		{"bad sample pct", Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5}}, ErrInvalidSamplePct},
		{"bad metrics exporter", Config{ServiceName: "svc", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}}, ErrInvalidMetricsExporter},
		{"bad log level", Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Level: "loud"}}, ErrInvalidLogLevel},
		{"disabled sections skip checks", Config{ServiceName: "svc", Tracing: TracingConfig{Exporter: "jaeger"}}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNewObserver_NoneExporters(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "dataconn-test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer returned nil primitives")
	}
	if _, err := NewMetrics(obs.Meter()); err != nil {
		t.Errorf("NewMetrics on observer meter: %v", err)
	}
	if err := obs.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("err = %v", err)
	}
}

func TestNop(t *testing.T) {
	obs := Nop()
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("Nop returned nil primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	if got := sampler(1).Description(); got != "AlwaysOnSampler" {
		t.Errorf("sampler(1) = %s", got)
	}
	if got := sampler(0).Description(); got != "AlwaysOffSampler" {
		t.Errorf("sampler(0) = %s", got)
	}
}
