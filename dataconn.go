package dataconn

import (
	"context"
	"fmt"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/embedded"
	"github.com/jonwraymond/dataconn/files"
	"github.com/jonwraymond/dataconn/llm"
	"github.com/jonwraymond/dataconn/secret"
	"github.com/jonwraymond/dataconn/snowpark"
	"github.com/jonwraymond/dataconn/sqlconn"
)

// Types returns every built-in backend type.
func Types() []connection.Type {
	return []connection.Type{
		sqlconn.Type,
		embedded.Type,
		files.Type,
		files.S3Type,
		files.GCSType,
		files.AzureType,
		llm.Type,
		snowpark.Type,
	}
}

// NewManager returns a manager with every built-in type registered. opts
// are applied after, so they may register further types or swap the
// config, cache and telemetry.
func NewManager(opts ...connection.ManagerOption) (*connection.Manager, error) {
	return connection.NewManager(append([]connection.ManagerOption{connection.WithTypes(Types()...)}, opts...)...)
}

// Settings selects where configuration is read from.
type Settings struct {
	// Paths are TOML files read in order, later files winning.
	// Default: config.DefaultPaths()
	Paths []string

	// EnvPrefix is the environment overlay prefix.
	// Default: config.DefaultEnvPrefix
	EnvPrefix string

	// NoEnv disables the environment overlay.
	NoEnv bool

	// StrictSecrets fails resolution when a secret provider returns an
	// empty value.
	StrictSecrets bool
}

// Config is loaded configuration: the layered section store and the secret
// resolver built from its [secrets.<provider>] tables.
type Config struct {
	Store   config.Store
	Secrets *secret.Resolver
	Files   []string
}

// Resolver returns the config resolver the manager should use.
func (c *Config) Resolver() *config.Resolver {
	return config.NewResolver(c.Store, c.Secrets)
}

// Close releases the secret providers.
func (c *Config) Close() error {
	return c.Secrets.Close()
}

// LoadConfig reads the TOML files, overlays the environment and creates the
// configured secret providers. The env and file providers are always
// available; a [secrets.env] or [secrets.file] table reconfigures them.
func LoadConfig(s Settings) (*Config, error) {
	paths := s.Paths
	if len(paths) == 0 {
		paths = config.DefaultPaths()
	}
	st, err := config.LoadTOML(paths...)
	if err != nil {
		return nil, fmt.Errorf("dataconn: load config: %w", err)
	}

	tables := st.SecretProviders()
	names := st.SecretProviderNames()
	for _, builtin := range []string{"env", "file"} {
		if _, ok := tables[builtin]; !ok {
			names = append(names, builtin)
		}
	}
	providers, err := secret.DefaultRegistry.CreateAll(names, tables)
	if err != nil {
		return nil, fmt.Errorf("dataconn: secrets: %w", err)
	}

	var store config.Store = st
	if !s.NoEnv {
		store = config.Layered(st, config.NewEnvStore(s.EnvPrefix))
	}
	return &Config{
		Store:   store,
		Secrets: secret.NewResolver(s.StrictSecrets, providers...),
		Files:   st.Files(),
	}, nil
}

// New loads configuration with default Settings and returns a manager over
// it. Closing the manager does not close the secret providers; use
// LoadConfig and NewManager to control their lifetime.
func New(opts ...connection.ManagerOption) (*connection.Manager, error) {
	cfg, err := LoadConfig(Settings{})
	if err != nil {
		return nil, err
	}
	return NewManager(append([]connection.ManagerOption{connection.WithResolver(cfg.Resolver())}, opts...)...)
}

// Connection returns the connection registered under tag, constructing it
// on first use.
func Connection(ctx context.Context, m *connection.Manager, tag string, opts ...connection.OpenOption) (connection.Connection, error) {
	return m.Open(ctx, tag, opts...)
}

// ConnectionOf returns a connection of a type that need not be registered.
func ConnectionOf(ctx context.Context, m *connection.Manager, t connection.Type, opts ...connection.OpenOption) (connection.Connection, error) {
	return m.Get(ctx, t, opts...)
}

// Open is Connection asserted to the backend's concrete type.
func Open[C connection.Connection](ctx context.Context, m *connection.Manager, tag string, opts ...connection.OpenOption) (C, error) {
	return connection.As[C](m.Open(ctx, tag, opts...))
}
