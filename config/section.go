package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Section is the resolved configuration of one named connection.
// Values are TOML leaves: string, int64, float64, bool, time values,
// []any and nested map[string]any tables.
type Section map[string]any

// Has reports whether key is present.
func (s Section) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the keys in sorted order.
func (s Section) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns key formatted as a string, or "" when absent.
func (s Section) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// StringOr returns key as a string, or def when absent or empty.
func (s Section) StringOr(key, def string) string {
	if v := s.String(key); v != "" {
		return v
	}
	return def
}

// Require returns key as a non-empty string.
func (s Section) Require(key string) (string, error) {
	v := s.String(key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// Int returns key as an int, or def when absent. Strings are parsed.
func (s Section) Int(key string, def int) (int, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrWrongType, key)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrWrongType, key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
}

// Float returns key as a float64, or def when absent.
func (s Section) Float(key string, def float64) (float64, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrWrongType, key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
}

// Bool returns key as a bool, or def when absent.
func (s Section) Bool(key string, def bool) (bool, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, fmt.Errorf("%w: %s: %v", ErrWrongType, key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
}

// Duration returns key as a duration, or def when absent. Strings use
// time.ParseDuration syntax, numbers are seconds.
func (s Section) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrWrongType, key, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T", ErrWrongType, key, v)
	}
}

// Table returns a nested table, or nil when absent or not a table.
func (s Section) Table(key string) Section {
	switch val := s[key].(type) {
	case map[string]any:
		return Section(val)
	case Section:
		return val
	default:
		return nil
	}
}

// Clone returns a deep copy of tables and slices.
func (s Section) Clone() Section {
	if s == nil {
		return Section{}
	}
	return Section(cloneMap(s))
}

// Merge returns a copy of s with over applied on top. Nested tables merge
// key by key; every other value in over replaces the one in s.
func (s Section) Merge(over map[string]any) Section {
	out := s.Clone()
	mergeInto(out, over)
	return out
}

// Without returns a copy of s minus keys.
func (s Section) Without(keys ...string) Section {
	out := s.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func mergeInto(dst map[string]any, src map[string]any) {
	for k, v := range src {
		if srcTable, ok := asTable(v); ok {
			if dstTable, ok := asTable(dst[k]); ok {
				merged := cloneMap(dstTable)
				mergeInto(merged, srcTable)
				dst[k] = merged
				continue
			}
		}
		dst[k] = cloneValue(v)
	}
}

func asTable(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case Section:
		return val, true
	default:
		return nil, false
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case Section:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
