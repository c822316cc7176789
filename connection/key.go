package connection

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key identifies one connection instance: its type tag, its resolved name
// and a fingerprint of the options it was constructed with.
type Key struct {
	Kind    string
	Name    string
	Options string
}

// NewKey builds the key for a connection of kind named name constructed
// with opts. Map keys are sorted before hashing so option order never
// matters.
func NewKey(kind, name string, opts map[string]any) (Key, error) {
	if opts == nil {
		opts = map[string]any{}
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	sum := sha256.Sum256(data)
	return Key{Kind: kind, Name: name, Options: hex.EncodeToString(sum[:8])}, nil
}

// String returns kind:name:options.
func (k Key) String() string {
	return k.Kind + ":" + k.Name + ":" + k.Options
}

// Namespace returns the cache namespace holding results of method.
func (k Key) Namespace(method string) string {
	return k.namespacePrefix() + method
}

func (k Key) namespacePrefix() string {
	return k.String() + "."
}
