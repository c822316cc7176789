package config

import "errors"

// Sentinel errors for configuration access.
var (
	// ErrWrongType is returned when a key holds a value of an unexpected type.
	ErrWrongType = errors.New("config: value has wrong type")

	// ErrMissingKey is returned by Require when a required key is absent or empty.
	ErrMissingKey = errors.New("config: required key missing")
)
