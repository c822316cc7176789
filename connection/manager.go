package connection

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/observe"
	"github.com/jonwraymond/dataconn/resilience"
)

// Manager hands out one shared connection per Key.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent requests for a key that
//     is not yet built trigger exactly one construction.
//   - Errors: construction errors propagate to every waiting caller and are
//     never remembered; the next request tries again.
type Manager struct {
	types         *Registry
	resolver      *config.Resolver
	cache         *cache.Store
	observer      observe.Observer
	mw            *observe.Middleware
	retry         resilience.RetryConfig
	validateOnGet bool
	clearOnReset  bool

	mu    sync.RWMutex
	conns map[Key]Connection
	group singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager) error

// WithTypes registers types with the manager.
func WithTypes(types ...Type) ManagerOption {
	return func(m *Manager) error {
		for _, t := range types {
			if err := m.types.Register(t); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithConfig resolves connection sections from store, expanding only
// `${VAR}` references.
func WithConfig(store config.Store) ManagerOption {
	return func(m *Manager) error {
		m.resolver = config.NewResolver(store, nil)
		return nil
	}
}

// WithResolver sets the config resolver.
func WithResolver(r *config.Resolver) ManagerOption {
	return func(m *Manager) error {
		m.resolver = r
		return nil
	}
}

// WithCache sets the read-result store shared by every connection.
// A nil store disables caching.
func WithCache(s *cache.Store) ManagerOption {
	return func(m *Manager) error {
		m.cache = s
		return nil
	}
}

// WithObserver instruments construction, resets and reads.
func WithObserver(obs observe.Observer) ManagerOption {
	return func(m *Manager) error {
		m.observer = obs
		return nil
	}
}

// WithMiddleware sets the instrumentation directly.
func WithMiddleware(mw *observe.Middleware) ManagerOption {
	return func(m *Manager) error {
		m.mw = mw
		return nil
	}
}

// WithRetry sets the default read retry policy.
func WithRetry(cfg resilience.RetryConfig) ManagerOption {
	return func(m *Manager) error {
		m.retry = cfg
		return nil
	}
}

// WithValidateOnGet pings live connections before handing them out and
// resets the ones that do not answer.
func WithValidateOnGet() ManagerOption {
	return func(m *Manager) error {
		m.validateOnGet = true
		return nil
	}
}

// WithClearCacheOnReset drops a connection's cached reads whenever it is
// reset.
func WithClearCacheOnReset() ManagerOption {
	return func(m *Manager) error {
		m.clearOnReset = true
		return nil
	}
}

// NewManager creates a manager. Without options it has no types, no config
// (every section resolves empty), a fresh cache store, no telemetry and
// the DefaultReadRetry policy.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		types:    &Registry{types: make(map[string]Type)},
		resolver: config.NewResolver(nil, nil),
		cache:    cache.NewStore(),
		retry:    resilience.DefaultReadRetry(),
		conns:    make(map[Key]Connection),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.mw == nil {
		mw, err := observe.MiddlewareFromObserver(m.observer)
		if err != nil {
			return nil, fmt.Errorf("connection: observer: %w", err)
		}
		m.mw = mw
	}
	return m, nil
}

// Types returns the manager's type registry.
func (m *Manager) Types() *Registry { return m.types }

// Cache returns the shared read-result store, possibly nil.
func (m *Manager) Cache() *cache.Store { return m.cache }

// OpenOption customizes one Get or Open call.
type OpenOption func(*openOptions)

type openOptions struct {
	name    string
	options map[string]any
}

// WithName selects the config section. "" and "default" mean the type's
// default name.
func WithName(name string) OpenOption {
	return func(o *openOptions) { o.name = name }
}

// WithOption sets one constructor option. Options override config values.
func WithOption(key string, value any) OpenOption {
	return func(o *openOptions) {
		if o.options == nil {
			o.options = make(map[string]any)
		}
		o.options[key] = value
	}
}

// WithOptions sets several constructor options.
func WithOptions(opts map[string]any) OpenOption {
	return func(o *openOptions) {
		if o.options == nil {
			o.options = make(map[string]any, len(opts))
		}
		maps.Copy(o.options, opts)
	}
}

// Open returns the connection of the type registered under tag.
func (m *Manager) Open(ctx context.Context, tag string, opts ...OpenOption) (Connection, error) {
	t, ok := m.types.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}
	return m.Get(ctx, t, opts...)
}

// Get returns the connection of type t, constructing it on first use.
func (m *Manager) Get(ctx context.Context, t Type, opts ...OpenOption) (Connection, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	name := config.SectionName(o.name, t.DefaultName)
	key, err := NewKey(t.Kind, name, o.options)
	if err != nil {
		return nil, &Error{Kind: t.Kind, Name: name, Op: "configure", Err: err}
	}

	if c, ok := m.live(key); ok {
		if !m.validateOnGet || c.IsLive(ctx) {
			return c, nil
		}
		if err := c.Reset(ctx); err == nil {
			return c, nil
		}
		m.evictStale(ctx, key, c)
	}

	v, err, _ := m.group.Do(key.String(), func() (any, error) {
		if c, ok := m.live(key); ok {
			return c, nil
		}
		c, err := m.construct(ctx, t, name, key, o.options)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.conns[key] = c
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Connection), nil
}

// live returns the stored connection for key unless it has been closed.
func (m *Manager) live(key Key) (Connection, bool) {
	m.mu.RLock()
	c, ok := m.conns[key]
	m.mu.RUnlock()
	if !ok || c.State() == StateClosed {
		return nil, false
	}
	return c, true
}

func (m *Manager) construct(ctx context.Context, t Type, name string, key Key, options map[string]any) (Connection, error) {
	meta := observe.ConnMeta{Kind: t.Kind, Name: name, Key: key.String()}
	var conn Connection

	err := m.mw.Construct(ctx, meta, func(ctx context.Context) error {
		cfg, err := m.resolver.Resolve(ctx, name, t.DefaultName, t.Defaults, options)
		if err != nil {
			return &Error{Kind: t.Kind, Name: name, Op: "configure", Err: err}
		}
		env := Env{
			Kind:    t.Kind,
			Name:    name,
			Key:     key,
			Config:  cfg,
			Cache:   m.cache,
			Observe: m.mw,
			Retry:   m.retry,
		}
		if m.clearOnReset && m.cache != nil {
			prefix := key.namespacePrefix()
			env.OnReset = func(context.Context) { m.cache.ClearPrefix(prefix) }
		}
		c, err := t.New(ctx, env)
		if err != nil {
			var cerr *Error
			if errors.As(err, &cerr) {
				return err
			}
			return &Error{Kind: t.Kind, Name: name, Op: "construct", Err: err}
		}
		conn = c
		return nil
	})
	return conn, err
}

// Lookup returns the stored connection for key without constructing.
func (m *Manager) Lookup(key Key) (Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[key]
	return c, ok
}

// Connections returns the keys of every stored connection, sorted.
func (m *Manager) Connections() []Key {
	m.mu.RLock()
	keys := make([]Key, 0, len(m.conns))
	for k := range m.conns {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Evict removes and closes the connection for key. Its cached reads stay.
func (m *Manager) Evict(ctx context.Context, key Key) error {
	m.mu.Lock()
	c, ok := m.conns[key]
	delete(m.conns, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close(ctx)
}

// evictStale closes c and drops it from the registry unless another caller
// has already replaced it.
func (m *Manager) evictStale(ctx context.Context, key Key, c Connection) {
	m.mu.Lock()
	if cur, ok := m.conns[key]; ok && cur == c {
		delete(m.conns, key)
	}
	m.mu.Unlock()
	_ = c.Close(ctx)
}

// Clear closes every connection, returning the joined close errors.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[Key]Connection)
	m.mu.Unlock()

	var errs []error
	for k, c := range conns {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Close is Clear.
func (m *Manager) Close(ctx context.Context) error { return m.Clear(ctx) }

// As converts the result of Get or Open to a concrete connection type.
func As[C Connection](conn Connection, err error) (C, error) {
	var zero C
	if err != nil {
		return zero, err
	}
	c, ok := conn.(C)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %T", ErrWrongType, conn.Key(), conn, zero)
	}
	return c, nil
}
