package connection

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a live connection from env.
type Factory func(ctx context.Context, env Env) (Connection, error)

// Type describes a backend.
type Type struct {
	// Kind is the tag connections are opened by, e.g. "sql".
	Kind string

	// DefaultName is the config section used when no name, or "default",
	// is requested.
	DefaultName string

	// Defaults are the lowest-precedence config values.
	Defaults map[string]any

	// New constructs the connection.
	New Factory
}

func (t Type) validate() error {
	if t.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidType)
	}
	if t.New == nil {
		return fmt.Errorf("%w: %q has no factory", ErrInvalidType, t.Kind)
	}
	return nil
}

// Registry maps tags to types.
//
// Contract:
//   - Concurrency: safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry creates a registry holding types.
func NewRegistry(types ...Type) (*Registry, error) {
	r := &Registry{types: make(map[string]Type)}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t under t.Kind.
func (r *Registry) Register(t Type) error {
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[t.Kind]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateType, t.Kind)
	}
	r.types[t.Kind] = t
	return nil
}

// Lookup returns the type registered under kind.
func (r *Registry) Lookup(kind string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[kind]
	return t, ok
}

// Kinds returns every registered tag, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
