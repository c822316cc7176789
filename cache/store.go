package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Store is the shared result store behind every memoized read.
//
// Contract:
//   - Concurrency: safe for concurrent use. Racing writes to one key are
//     last-write-wins.
//   - Namespaces never share entries even when their keys collide.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	clock      Clock
	keyer      Keyer
	stats      counters
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(c Clock) StoreOption {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) StoreOption {
	return func(s *Store) {
		if k != nil {
			s.keyer = k
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		namespaces: make(map[string]*namespace),
		clock:      time.Now,
		keyer:      NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keyer returns the keyer used by Memoize.
func (s *Store) Keyer() Keyer { return s.keyer }

// Now returns the store's notion of the current time.
func (s *Store) Now() time.Time { return s.clock() }

// Get returns the fresh value stored under key in ns.
func (s *Store) Get(ns, key string) (any, bool) {
	n := s.lookup(ns)
	if n == nil {
		s.stats.misses.Add(1)
		return nil, false
	}
	v, ok, expired := n.get(key, s.clock())
	if expired {
		s.stats.expired.Add(1)
	}
	if !ok {
		s.stats.misses.Add(1)
		return nil, false
	}
	s.stats.hits.Add(1)
	return v, true
}

// Set stores value under key in ns. A policy that disables caching makes
// Set a no-op.
func (s *Store) Set(ns, key string, value any, p Policy) {
	if !p.ShouldCache() {
		return
	}
	evicted := s.namespace(ns).set(key, value, s.clock(), p)
	s.stats.sets.Add(1)
	if evicted > 0 {
		s.stats.evictions.Add(int64(evicted))
	}
}

// Delete removes one entry. It reports whether the entry existed.
func (s *Store) Delete(ns, key string) bool {
	n := s.lookup(ns)
	if n == nil {
		return false
	}
	return n.delete(key)
}

// Len returns the number of entries in ns, including expired entries not yet
// looked up.
func (s *Store) Len(ns string) int {
	n := s.lookup(ns)
	if n == nil {
		return 0
	}
	return n.len()
}

// Namespaces returns the ids of every namespace, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.namespaces))
	for id := range s.namespaces {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClearNamespace drops every entry in ns.
func (s *Store) ClearNamespace(ns string) {
	s.mu.Lock()
	delete(s.namespaces, ns)
	s.mu.Unlock()
}

// ClearPrefix drops every namespace whose id starts with prefix and returns
// how many were dropped.
func (s *Store) ClearPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id := range s.namespaces {
		if strings.HasPrefix(id, prefix) {
			delete(s.namespaces, id)
			dropped++
		}
	}
	return dropped
}

// Clear drops everything.
func (s *Store) Clear() {
	s.mu.Lock()
	s.namespaces = make(map[string]*namespace)
	s.mu.Unlock()
}

// Stats returns a snapshot of the store counters.
func (s *Store) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Store) lookup(ns string) *namespace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespaces[ns]
}

func (s *Store) namespace(ns string) *namespace {
	if n := s.lookup(ns); n != nil {
		return n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.namespaces[ns]; ok {
		return n
	}
	n := newNamespace()
	s.namespaces[ns] = n
	return n
}
