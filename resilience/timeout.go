package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds a single attempt.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive duration disables it.
func NewTimeout(d time.Duration) *Timeout {
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op under a derived deadline. If the deadline fires first the
// result is ErrTimeout; op keeps the cancelled context and must return on
// its own.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if t == nil || t.d <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
