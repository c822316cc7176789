package health

import "errors"

var (
	// ErrCheckFailed is the error of an unhealthy result without a cause.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is the error of a check that missed the deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound is returned for an unregistered checker name.
	ErrCheckerNotFound = errors.New("health: checker not found")
)
