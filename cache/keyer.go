package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer derives entry keys from read arguments.
//
// Contract:
//   - Determinism: equal arguments produce equal keys regardless of map order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives the entry key for args within namespace.
	Key(namespace string, args any) (string, error)
}

// DefaultKeyer hashes the canonical JSON form of the arguments.
// Struct fields tagged `json:"-"` never reach the key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns <namespace>:<hex of the first 16 bytes of SHA-256>.
func (k *DefaultKeyer) Key(namespace string, args any) (string, error) {
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize args: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return namespace + ":" + hex.EncodeToString(sum[:16]), nil
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// encoding/json sorts map keys and honors struct tags.
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
