package resilience

import (
	"context"
	"time"
)

// Executor composes retry, reset, rate limiting and a per-attempt timeout.
type Executor struct {
	retry       *Retry
	reset       func(context.Context) error
	rateLimiter *RateLimiter
	timeout     *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor. With no options it runs op once.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds retry logic.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithReset sets the hook called before every retry.
func WithReset(reset func(context.Context) error) ExecutorOption {
	return func(e *Executor) { e.reset = reset }
}

// WithRateLimiter throttles every attempt.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithTimeout bounds every attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = NewTimeout(d)
		}
	}
}

// Execute runs op through the configured patterns.
//
// Order, outermost first:
// 1. Retry with reset
// 2. Rate limiter, so each attempt spends a token
// 3. Timeout
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := op

	if e.timeout != nil {
		inner := attempt
		attempt = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.rateLimiter != nil {
		inner := attempt
		attempt = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	if e.retry == nil {
		return attempt(ctx)
	}
	return e.retry.ExecuteWithReset(ctx, e.reset, attempt)
}
