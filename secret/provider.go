package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// ErrSecretNotFound is returned when a provider has no value for a reference.
var ErrSecretNotFound = errors.New("secret: not found")

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	// Prefix is prepended to every reference, e.g. "DATACONN_".
	Prefix string
}

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

// Resolve implements Provider.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	key := p.Prefix + ref
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, key)
	}
	return v, nil
}

// Close implements Provider.
func (p *EnvProvider) Close() error { return nil }

// FileProvider reads secrets from files, one secret per file, trailing
// newlines trimmed. Relative references resolve against Dir.
type FileProvider struct {
	Dir string
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }

// Resolve implements Provider.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, path)
		}
		return "", fmt.Errorf("read secret file %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Close implements Provider.
func (p *FileProvider) Close() error { return nil }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
