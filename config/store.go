package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Store looks up connection sections by name.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Section returns a copy the caller may modify.
type Store interface {
	Section(name string) (Section, bool)
}

// MapStore is an in-memory Store.
type MapStore struct {
	mu       sync.RWMutex
	sections map[string]Section
}

// NewMapStore creates a store holding sections.
func NewMapStore(sections map[string]Section) *MapStore {
	s := &MapStore{sections: make(map[string]Section, len(sections))}
	for name, sec := range sections {
		s.sections[name] = sec.Clone()
	}
	return s
}

// Section implements Store.
func (s *MapStore) Section(name string) (Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections[name]
	if !ok {
		return nil, false
	}
	return sec.Clone(), true
}

// Set replaces one section.
func (s *MapStore) Set(name string, sec Section) {
	s.mu.Lock()
	s.sections[name] = sec.Clone()
	s.mu.Unlock()
}

// Names returns the section names, sorted.
func (s *MapStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// document is the on-disk layout.
type document struct {
	Connections map[string]map[string]any `toml:"connections"`
	Secrets     map[string]map[string]any `toml:"secrets"`
}

// TOMLStore holds connection sections read from TOML files.
//
//	[connections.pets_db]
//	url = "sqlite:///:memory:"
//
//	[secrets.env]
//	prefix = "PETS_"
type TOMLStore struct {
	*MapStore
	providers map[string]map[string]any
	files     []string
}

// LoadTOML reads each path in order, later files overriding earlier ones key
// by key. Paths that do not exist are skipped; any other read or parse
// error is returned.
func LoadTOML(paths ...string) (*TOMLStore, error) {
	st := &TOMLStore{
		MapStore:  NewMapStore(nil),
		providers: make(map[string]map[string]any),
	}
	for _, path := range paths {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := st.merge(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		st.files = append(st.files, path)
	}
	return st, nil
}

// ParseTOML builds a store from a single document.
func ParseTOML(data []byte) (*TOMLStore, error) {
	st := &TOMLStore{
		MapStore:  NewMapStore(nil),
		providers: make(map[string]map[string]any),
	}
	if err := st.merge(data); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *TOMLStore) merge(data []byte) error {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for name, values := range doc.Connections {
		name = strings.TrimSpace(name)
		if name == "" {
			return errors.New("connections: empty section name")
		}
		st.sections[name] = st.sections[name].Merge(values)
	}
	for name, values := range doc.Secrets {
		st.providers[name] = Section(st.providers[name]).Merge(values)
	}
	return nil
}

// Files returns the paths that were actually read.
func (st *TOMLStore) Files() []string {
	return append([]string(nil), st.files...)
}

// SecretProviders returns the `[secrets.<provider>]` tables.
func (st *TOMLStore) SecretProviders() map[string]map[string]any {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]map[string]any, len(st.providers))
	for name, cfg := range st.providers {
		out[name] = cloneMap(cfg)
	}
	return out
}

// SecretProviderNames returns the configured provider names, sorted.
func (st *TOMLStore) SecretProviderNames() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	names := make([]string, 0, len(st.providers))
	for name := range st.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPaths returns the global then project-local config locations.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".dataconn", "connections.toml"))
	}
	return append(paths, filepath.Join(".dataconn", "connections.toml"))
}

// layered stacks stores, later stores winning.
type layered []Store

// Layered returns a Store that merges the sections of every store, later
// stores overriding earlier ones key by key.
func Layered(stores ...Store) Store {
	out := make(layered, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (l layered) Section(name string) (Section, bool) {
	var merged Section
	found := false
	for _, s := range l {
		sec, ok := s.Section(name)
		if !ok {
			continue
		}
		found = true
		merged = merged.Merge(sec)
	}
	return merged, found
}

var (
	_ Store = (*MapStore)(nil)
	_ Store = (*TOMLStore)(nil)
	_ Store = layered(nil)
)
