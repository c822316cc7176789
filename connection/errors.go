package connection

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrClosed is returned by operations on a connection after Close.
	ErrClosed = errors.New("connection: closed")

	// ErrUnknownType is returned when a tag is not registered.
	ErrUnknownType = errors.New("connection: unknown type")

	// ErrDuplicateType is returned when a tag is registered twice.
	ErrDuplicateType = errors.New("connection: type already registered")

	// ErrInvalidType is returned for a Type without a kind or factory.
	ErrInvalidType = errors.New("connection: invalid type")

	// ErrInvalidOptions is returned when constructor options cannot be
	// fingerprinted.
	ErrInvalidOptions = errors.New("connection: invalid options")

	// ErrWrongType is returned by As when a connection has another concrete type.
	ErrWrongType = errors.New("connection: wrong connection type")
)

// Error describes a failure to configure, construct or reset a connection.
type Error struct {
	Kind string
	Name string
	Op   string // configure, construct, reset
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("connection %s.%s: %s: %v", e.Kind, e.Name, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether a read that failed with err is worth another
// attempt after a reset.
//
// Errors carrying a Transient() bool method decide for themselves. ErrClosed
// and context cancellation are permanent. Anything else is assumed to be a
// broken session or network fault and is transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return true
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) Transient() bool { return false }
