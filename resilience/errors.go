package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrRateLimitExceeded is returned when no token became available in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrTimeout is returned when one attempt outlives its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
