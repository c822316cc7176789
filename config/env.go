package config

import (
	"os"
	"strings"
)

// DefaultEnvPrefix is the prefix EnvStore uses when none is set.
const DefaultEnvPrefix = "DATACONN_CONNECTIONS"

// EnvStore reads sections from variables of the form
// <PREFIX>__<NAME>__<KEY>=value, e.g.
//
//	DATACONN_CONNECTIONS__PETS_DB__URL=sqlite:///:memory:
//
// Names and keys are lower-cased. Values are always strings; Section's typed
// accessors parse them.
type EnvStore struct {
	Prefix  string
	Environ func() []string
}

// NewEnvStore creates a store over the process environment.
func NewEnvStore(prefix string) *EnvStore {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvStore{Prefix: prefix, Environ: os.Environ}
}

// Section implements Store.
func (e *EnvStore) Section(name string) (Section, bool) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	want := strings.ToUpper(prefix + "__" + name + "__")

	var sec Section
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || len(k) <= len(want) || !strings.EqualFold(k[:len(want)], want) {
			continue
		}
		if sec == nil {
			sec = Section{}
		}
		sec[strings.ToLower(k[len(want):])] = v
	}
	return sec, sec != nil
}

var _ Store = (*EnvStore)(nil)
