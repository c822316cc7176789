package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/resilience"
)

var errStale = errors.New("stale session")

type fakeHandle struct {
	id     int
	closed atomic.Bool
}

type fakeDriver struct {
	connects atomic.Int32
	closes   atomic.Int32
	delay    time.Duration

	mu         sync.Mutex
	connectErr error
	pingErr    error
}

func (d *fakeDriver) setConnectErr(err error) {
	d.mu.Lock()
	d.connectErr = err
	d.mu.Unlock()
}

func (d *fakeDriver) setPingErr(err error) {
	d.mu.Lock()
	d.pingErr = err
	d.mu.Unlock()
}

func (d *fakeDriver) Connect(ctx context.Context, cfg config.Section) (*fakeHandle, error) {
	n := d.connects.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	err := d.connectErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &fakeHandle{id: int(n)}, nil
}

func (d *fakeDriver) Ping(ctx context.Context, h *fakeHandle) error {
	if h.closed.Load() {
		return ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pingErr
}

func (d *fakeDriver) Close(h *fakeHandle) error {
	if h == nil {
		return nil
	}
	d.closes.Add(1)
	h.closed.Store(true)
	return nil
}

type fakeConn struct {
	*Base[*fakeHandle]
}

func fakeType(d *fakeDriver) Type {
	return Type{
		Kind:        "fake",
		DefaultName: "fake",
		Defaults:    map[string]any{"timeout": "5s"},
		New: func(ctx context.Context, env Env) (Connection, error) {
			b, err := NewBase(ctx, env, d)
			if err != nil {
				return nil, err
			}
			return &fakeConn{Base: b}, nil
		},
	}
}

var fastRetry = resilience.RetryConfig{
	MaxAttempts:  4,
	InitialDelay: time.Millisecond,
	MaxDelay:     time.Millisecond,
}

func newFakeManager(t interface{ Fatalf(string, ...any) }, d *fakeDriver, opts ...ManagerOption) *Manager {
	opts = append([]ManagerOption{WithTypes(fakeType(d)), WithRetry(fastRetry)}, opts...)
	m, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func openFake(ctx context.Context, m *Manager, opts ...OpenOption) (*fakeConn, error) {
	return As[*fakeConn](m.Open(ctx, "fake", opts...))
}
