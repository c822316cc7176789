package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between attempts.
type BackoffStrategy int

const (
	// BackoffConstant waits InitialDelay before every retry.
	BackoffConstant BackoffStrategy = iota
	// BackoffLinear waits InitialDelay * attempt.
	BackoffLinear
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential
)

// String returns the strategy name.
func (s BackoffStrategy) String() string {
	switch s {
	case BackoffConstant:
		return "constant"
	case BackoffLinear:
		return "linear"
	case BackoffExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, the first one included.
	// Default: 4
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	// Default: 3s
	InitialDelay time.Duration

	// MaxDelay caps the wait between attempts.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffConstant
	Strategy BackoffStrategy

	// Jitter adds up to 25% to each delay.
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Default: every non-nil error.
	RetryIf func(err error) bool

	// OnRetry runs before each retry, ahead of the reset hook.
	// attempt is the number of the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultReadRetry is the policy applied to connection reads: four attempts
// with a fixed three second wait.
func DefaultReadRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 3 * time.Second,
		Strategy:     BackoffConstant,
	}
}

// Retry runs an operation until it succeeds or attempts run out.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 4
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 3 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op with retry and no reset hook.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	return r.ExecuteWithReset(ctx, nil, op)
}

// ExecuteWithReset runs op, and before every retry calls reset so the
// next attempt starts from a fresh connection. A failing reset does not use
// up an attempt; the next attempt runs against whatever handle is installed.
// When attempts run out the error from the last attempt is returned as-is.
func (r *Retry) ExecuteWithReset(ctx context.Context, reset func(context.Context) error, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 && reset != nil {
			_ = reset(ctx)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func (r *Retry) delay(attempt int) time.Duration {
	var d time.Duration

	switch r.config.Strategy {
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	default:
		d = r.config.InitialDelay
	}

	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the effective retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
