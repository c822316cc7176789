package cache

import (
	"errors"
	"strings"
	"time"
)

// MaxNamespaceLength is the maximum allowed length for a namespace id.
const MaxNamespaceLength = 512

// NoExpiry marks entries that stay valid until evicted or cleared.
const NoExpiry time.Duration = -1

// Sentinel errors for cache operations.
var (
	ErrNilStore         = errors.New("cache: store is nil")
	ErrInvalidNamespace = errors.New("cache: namespace is invalid")
	ErrNamespaceTooLong = errors.New("cache: namespace exceeds max length")
)

// ValidateNamespace checks if a namespace id is usable.
func ValidateNamespace(ns string) error {
	if strings.TrimSpace(ns) == "" {
		return ErrInvalidNamespace
	}
	if len(ns) > MaxNamespaceLength {
		return ErrNamespaceTooLong
	}
	if strings.ContainsAny(ns, "\n\r") {
		return ErrInvalidNamespace
	}
	return nil
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time
