package connection

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/observe"
	"github.com/jonwraymond/dataconn/resilience"
)

// ReadOption customizes one Read.
type ReadOption func(*readOptions)

type readOptions struct {
	policy  cache.Policy
	retry   resilience.RetryConfig
	noRetry bool
	timeout time.Duration
	limiter *resilience.RateLimiter
}

// WithTTL caches the result for d. Zero disables caching for this read;
// cache.NoExpiry keeps it until evicted.
func WithTTL(d time.Duration) ReadOption {
	return func(o *readOptions) { o.policy.TTL = d }
}

// WithMaxEntries bounds the number of results cached for the method.
func WithMaxEntries(n int) ReadOption {
	return func(o *readOptions) { o.policy.MaxEntries = n }
}

// WithPolicy sets the whole cache policy.
func WithPolicy(p cache.Policy) ReadOption {
	return func(o *readOptions) { o.policy = p }
}

// WithReadRetry replaces the manager's retry policy for this read.
func WithReadRetry(cfg resilience.RetryConfig) ReadOption {
	return func(o *readOptions) {
		o.retry = cfg
		o.noRetry = false
	}
}

// WithoutRetry runs the backend call once.
func WithoutRetry() ReadOption {
	return func(o *readOptions) { o.noRetry = true }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ReadOption {
	return func(o *readOptions) { o.timeout = d }
}

// WithRateLimiter makes every attempt wait for a token from rl.
func WithRateLimiter(rl *resilience.RateLimiter) ReadOption {
	return func(o *readOptions) { o.limiter = rl }
}

// ReadFunc is one backend call against handle h.
type ReadFunc[H, A, R any] func(ctx context.Context, h H, args A) (R, error)

// Read runs fn against b's handle.
//
// Layers, outermost first:
//  1. the result cache, keyed by b's key, method and args (never by b)
//  2. retry, resetting b before every attempt after the first
//  3. the read span, metrics and debug log, once per attempt
//  4. fn with the handle installed at that moment
//
// Without WithTTL nothing is cached. Transient errors are retried under
// b's default policy; the last error is returned unchanged.
func Read[H, A, R any](ctx context.Context, b *Base[H], method string, args A, fn ReadFunc[H, A, R], opts ...ReadOption) (R, error) {
	o := readOptions{retry: b.env.Retry}
	for _, opt := range opts {
		opt(&o)
	}
	meta := b.env.Meta().WithMethod(method)
	mw := b.env.Observe

	called := false
	invoke := func(ctx context.Context, base *Base[H], args A) (R, error) {
		called = true
		var res attemptResult[R]
		err := o.executor(base.Reset, base.Logger(), mw, meta).Execute(ctx, func(ctx context.Context) error {
			id := res.begin()
			return mw.Read(ctx, meta, func(ctx context.Context) error {
				h, err := base.Handle()
				if err != nil {
					return err
				}
				r, err := fn(ctx, h, args)
				if err != nil {
					return err
				}
				res.store(id, r)
				return nil
			})
		})
		return res.seal(), err
	}

	caching := b.env.Cache != nil && o.policy.ShouldCache()
	read := cache.Memoize(b.env.Cache, b.env.Key.Namespace(method), invoke, o.policy)
	r, err := read(ctx, b, args)
	if caching && err == nil {
		mw.Metrics().RecordCacheLookup(ctx, meta, !called)
	}
	return r, err
}

// attemptResult holds the value of the latest attempt. An attempt abandoned
// by the per-attempt timeout may still finish in its own goroutine; its
// value is dropped once a newer attempt has started or the read returned.
type attemptResult[R any] struct {
	mu     sync.Mutex
	latest int
	value  R
}

func (a *attemptResult[R]) begin() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest++
	return a.latest
}

func (a *attemptResult[R]) store(id int, v R) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id == a.latest {
		a.value = v
	}
}

func (a *attemptResult[R]) seal() R {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest++
	return a.value
}

func (o readOptions) executor(reset func(context.Context) error, logger observe.Logger, mw *observe.Middleware, meta observe.ConnMeta) *resilience.Executor {
	opts := []resilience.ExecutorOption{resilience.WithTimeout(o.timeout)}
	if o.limiter != nil {
		opts = append(opts, resilience.WithRateLimiter(o.limiter))
	}
	if o.noRetry {
		return resilience.NewExecutor(opts...)
	}

	cfg := o.retry
	if cfg.RetryIf == nil {
		cfg.RetryIf = IsTransient
	}
	log := logger.WithConnection(meta)
	next := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn(context.Background(), "connection read failed, retrying",
			observe.F("attempt", attempt),
			observe.F("delay_ms", delay.Milliseconds()),
			observe.Err(err),
		)
		mw.Metrics().RecordRetry(context.Background(), meta, attempt)
		if next != nil {
			next(attempt, err, delay)
		}
	}
	return resilience.NewExecutor(append(opts,
		resilience.WithRetry(resilience.NewRetry(cfg)),
		resilience.WithReset(reset),
	)...)
}
