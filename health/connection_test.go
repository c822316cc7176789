package health

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
)

// probe is a Connection whose liveness is scripted.
type probe struct {
	name string

	mu          sync.Mutex
	live        bool
	healOnReset bool
	resetErr    error
	resets      int
	state       connection.State
}

func (p *probe) Kind() string           { return "probe" }
func (p *probe) Name() string           { return p.name }
func (p *probe) Config() config.Section { return config.Section{} }

func (p *probe) Key() connection.Key {
	return connection.Key{Kind: "probe", Name: p.name, Options: "0"}
}

func (p *probe) State() connection.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *probe) IsLive(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == connection.StateLive && p.live
}

func (p *probe) Reset(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	if p.resetErr != nil {
		return p.resetErr
	}
	if p.healOnReset {
		p.live = true
	}
	return nil
}

func (p *probe) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = connection.StateClosed
	return nil
}

func newProbe(name string, live bool) *probe {
	return &probe{name: name, live: live, state: connection.StateLive}
}

func TestConnectionChecker(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name       string
		probe      *probe
		opts       []ConnectionOption
		want       Status
		wantErr    error
		wantResets int
	}{
		{name: "live", probe: newProbe("a", true), want: StatusHealthy},
		{name: "down", probe: newProbe("a", false), want: StatusUnhealthy, wantErr: ErrNotLive},
		{
			name:       "reset heals",
			probe:      &probe{name: "a", healOnReset: true, state: connection.StateLive},
			opts:       []ConnectionOption{WithResetOnFailure()},
			want:       StatusDegraded,
			wantResets: 1,
		},
		{
			name:       "reset fails",
			probe:      &probe{name: "a", resetErr: boom, state: connection.StateLive},
			opts:       []ConnectionOption{WithResetOnFailure()},
			want:       StatusUnhealthy,
			wantErr:    boom,
			wantResets: 1,
		},
		{
			name:       "still down after reset",
			probe:      newProbe("a", false),
			opts:       []ConnectionOption{WithResetOnFailure()},
			want:       StatusUnhealthy,
			wantErr:    ErrNotLive,
			wantResets: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConnectionChecker(tt.probe, tt.opts...)
			res := c.Check(context.Background())
			if res.Status != tt.want {
				t.Errorf("status = %v, want %v (%s)", res.Status, tt.want, res.Message)
			}
			if tt.wantErr != nil && !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("error = %v, want %v", res.Error, tt.wantErr)
			}
			if tt.probe.resets != tt.wantResets {
				t.Errorf("resets = %d, want %d", tt.probe.resets, tt.wantResets)
			}
			if res.Details["kind"] != "probe" || res.Details["name"] != "a" {
				t.Errorf("details = %v", res.Details)
			}
		})
	}
}

func TestConnectionChecker_Closed(t *testing.T) {
	p := newProbe("a", true)
	_ = p.Close(context.Background())

	c := NewConnectionChecker(p, WithResetOnFailure())
	if c.Name() != "probe:a:0" {
		t.Errorf("Name = %q", c.Name())
	}
	res := c.Check(context.Background())
	if res.Status != StatusUnhealthy || !errors.Is(res.Error, connection.ErrClosed) {
		t.Errorf("result = %+v, want closed", res)
	}
	if p.resets != 0 {
		t.Error("closed connection was reset")
	}
}

func probeManager(t *testing.T, probes map[string]*probe) *connection.Manager {
	t.Helper()
	m, err := connection.NewManager(connection.WithTypes(connection.Type{
		Kind:        "probe",
		DefaultName: "probe",
		New: func(_ context.Context, env connection.Env) (connection.Connection, error) {
			return probes[env.Name], nil
		},
	}))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()
	for name := range probes {
		if _, err := m.Open(ctx, "probe", connection.WithName(name)); err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
	}
	return m
}

func TestRegisterManager(t *testing.T) {
	m := probeManager(t, map[string]*probe{
		"up":   newProbe("up", true),
		"down": newProbe("down", false),
	})

	agg := NewAggregator()
	if n := RegisterManager(agg, m); n != 2 {
		t.Fatalf("registered %d checkers, want 2", n)
	}
	if got := len(agg.CheckerNames()); got != 2 {
		t.Fatalf("aggregator holds %d checkers", got)
	}
	if got := Overall(agg.CheckAll(context.Background())); got != StatusUnhealthy {
		t.Errorf("overall = %v, want unhealthy", got)
	}
}

func TestManagerChecker(t *testing.T) {
	healing := &probe{name: "flaky", healOnReset: true, state: connection.StateLive}
	m := probeManager(t, map[string]*probe{
		"up":    newProbe("up", true),
		"flaky": healing,
	})

	c := NewManagerChecker(m, WithResetOnFailure())
	if c.Name() != "connections" {
		t.Errorf("Name = %q", c.Name())
	}
	res := c.Check(context.Background())
	if res.Status != StatusDegraded {
		t.Errorf("status = %v, want degraded (%s)", res.Status, res.Message)
	}
	if len(res.Details) != 2 {
		t.Errorf("details = %v, want one per connection", res.Details)
	}

	res = c.Check(context.Background())
	if res.Status != StatusHealthy {
		t.Errorf("second check status = %v, want healthy", res.Status)
	}
}

func TestManagerChecker_Empty(t *testing.T) {
	m, err := connection.NewManager()
	if err != nil {
		t.Fatal(err)
	}
	if res := NewManagerChecker(m).Check(context.Background()); res.Status != StatusHealthy {
		t.Errorf("empty manager status = %v", res.Status)
	}
}
