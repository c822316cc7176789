package connection

import (
	"context"
	"sync"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/observe"
	"github.com/jonwraymond/dataconn/resilience"
)

// Connection is the backend-independent view of a connection.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Close is terminal and idempotent; later reads fail with ErrClosed.
type Connection interface {
	Kind() string
	Name() string
	Key() Key
	State() State
	Config() config.Section

	// IsLive reports whether the connection is open and its handle answers.
	IsLive(ctx context.Context) bool

	// Reset replaces the native handle with a freshly built one.
	Reset(ctx context.Context) error

	// Close releases the native handle.
	Close(ctx context.Context) error
}

// Driver builds and checks native handles of type H.
type Driver[H any] interface {
	Connect(ctx context.Context, cfg config.Section) (H, error)
	Ping(ctx context.Context, h H) error
	Close(h H) error
}

// Env is everything a factory receives from the Manager.
type Env struct {
	Kind   string
	Name   string
	Key    Key
	Config config.Section

	// Cache is the shared read-result store; nil disables caching.
	Cache *cache.Store

	// Observe instruments reads and resets.
	Observe *observe.Middleware

	// Retry is the default read retry policy.
	Retry resilience.RetryConfig

	// OnReset runs after every successful reset.
	OnReset func(ctx context.Context)
}

// Meta returns the telemetry identity of the connection.
func (e Env) Meta() observe.ConnMeta {
	return observe.ConnMeta{Kind: e.Kind, Name: e.Name, Key: e.Key.String()}
}

// Base owns a native handle and implements Connection on top of a Driver.
// Backends embed *Base[H] and add their read methods.
type Base[H any] struct {
	env    Env
	driver Driver[H]
	log    observe.Logger

	mu     sync.RWMutex
	handle H
	state  State
}

// NewBase connects through driver and returns a live Base.
func NewBase[H any](ctx context.Context, env Env, driver Driver[H]) (*Base[H], error) {
	if env.Observe == nil {
		env.Observe = observe.NewMiddleware(nil, nil, nil)
	}
	if env.Config == nil {
		env.Config = config.Section{}
	}
	b := &Base[H]{
		env:    env,
		driver: driver,
		log:    env.Observe.Logger().WithConnection(env.Meta()),
	}
	h, err := driver.Connect(ctx, env.Config)
	if err != nil {
		return nil, err
	}
	b.handle = h
	b.state = StateLive
	return b, nil
}

func (b *Base[H]) Kind() string           { return b.env.Kind }
func (b *Base[H]) Name() string           { return b.env.Name }
func (b *Base[H]) Key() Key               { return b.env.Key }
func (b *Base[H]) Config() config.Section { return b.env.Config.Clone() }

// Env returns the environment the connection was built with.
func (b *Base[H]) Env() Env { return b.env }

// Logger returns a logger scoped to this connection.
func (b *Base[H]) Logger() observe.Logger { return b.log }

func (b *Base[H]) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Handle returns the installed native handle.
func (b *Base[H]) Handle() (H, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != StateLive {
		var zero H
		return zero, ErrClosed
	}
	return b.handle, nil
}

func (b *Base[H]) IsLive(ctx context.Context) bool {
	h, err := b.Handle()
	if err != nil {
		return false
	}
	return b.driver.Ping(ctx, h) == nil
}

// Reset builds a new handle from the original config and swaps it in. If
// the build fails the current handle stays installed and the error is
// returned. The previous handle is closed after the swap, best effort.
func (b *Base[H]) Reset(ctx context.Context) error {
	if b.State() == StateClosed {
		return ErrClosed
	}
	meta := b.env.Meta()

	h, err := b.driver.Connect(ctx, b.env.Config)
	b.env.Observe.Metrics().RecordReset(ctx, meta, err)
	if err != nil {
		b.log.Warn(ctx, "connection reset failed", observe.Err(err))
		return &Error{Kind: b.env.Kind, Name: b.env.Name, Op: "reset", Err: err}
	}

	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		_ = b.driver.Close(h)
		return ErrClosed
	}
	old := b.handle
	b.handle = h
	b.state = StateLive
	b.mu.Unlock()

	if err := b.driver.Close(old); err != nil {
		b.log.Debug(ctx, "closing replaced handle failed", observe.Err(err))
	}
	b.log.Info(ctx, "connection reset")
	if b.env.OnReset != nil {
		b.env.OnReset(ctx)
	}
	return nil
}

func (b *Base[H]) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return nil
	}
	h := b.handle
	var zero H
	b.handle = zero
	b.state = StateClosed
	b.mu.Unlock()

	err := b.driver.Close(h)
	if err != nil {
		b.log.Warn(ctx, "connection close failed", observe.Err(err))
	} else {
		b.log.Debug(ctx, "connection closed")
	}
	return err
}

var _ Connection = (*Base[struct{}])(nil)
