package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/dataconn/secret"
)

// DefaultName is the sentinel connection name that selects a type's own
// default section.
const DefaultName = "default"

// SectionName maps the sentinel name, or an empty one, to defaultName.
func SectionName(name, defaultName string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == DefaultName {
		return defaultName
	}
	return name
}

// Resolver turns a connection name into its effective configuration.
type Resolver struct {
	store   Store
	secrets *secret.Resolver
}

// NewResolver creates a resolver over store. secrets may be nil, in which
// case only strict `${VAR}` expansion applies.
func NewResolver(store Store, secrets *secret.Resolver) *Resolver {
	return &Resolver{store: store, secrets: secrets}
}

// Resolve returns the section for name, merged with overrides.
//
// Precedence, lowest first: defaults, the stored section, overrides.
// Secret references in stored values are resolved; overrides are taken
// verbatim. A missing section yields defaults plus overrides and no error.
func (r *Resolver) Resolve(ctx context.Context, name, defaultName string, defaults, overrides map[string]any) (Section, error) {
	section := SectionName(name, defaultName)
	out := Section(nil).Merge(defaults)

	if r != nil && r.store != nil {
		if stored, ok := r.store.Section(section); ok {
			resolved, err := r.secrets.ResolveMap(ctx, stored)
			if err != nil {
				return nil, fmt.Errorf("connections.%s: %w", section, err)
			}
			out = out.Merge(resolved)
		}
	}

	return out.Merge(overrides), nil
}
