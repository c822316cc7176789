package dataconn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/sqlconn"
)

func TestNewManager_RegistersBuiltins(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	want := []string{"azure", "embedded", "files", "gcs", "openai", "s3", "snowpark", "sql"}
	if diff := cmp.Diff(want, m.Types().Kinds()); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func petsManager(t *testing.T) *connection.Manager {
	t.Helper()
	m, err := NewManager(connection.WithConfig(config.NewMapStore(map[string]config.Section{
		"pets_db": {"url": "sqlite:///:memory:"},
	})))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Clear(context.Background()) })
	return m
}

func TestOpen(t *testing.T) {
	m := petsManager(t)
	ctx := context.Background()

	db, err := Open[*sqlconn.Conn](ctx, m, "sql", connection.WithName("pets_db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	again, err := Connection(ctx, m, "sql", connection.WithName("pets_db"))
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if again != connection.Connection(db) {
		t.Error("same tag and name returned a different connection")
	}

	if _, err := Connection(ctx, m, "nosuch"); !errors.Is(err, connection.ErrUnknownType) {
		t.Errorf("unknown tag: err = %v", err)
	}
	if _, err := Open[*sqlconn.Conn](ctx, m, "embedded", connection.WithOption("database", ":memory:")); !errors.Is(err, connection.ErrWrongType) {
		t.Errorf("wrong type: err = %v", err)
	}
}

func TestConnectionOf_UnregisteredType(t *testing.T) {
	m := petsManager(t)
	custom := sqlconn.Type
	custom.Kind = "warehouse"
	custom.DefaultName = "pets_db"

	conn, err := ConnectionOf(context.Background(), m, custom)
	if err != nil {
		t.Fatalf("ConnectionOf: %v", err)
	}
	if conn.Kind() != "warehouse" || conn.Name() != "pets_db" {
		t.Errorf("kind/name = %s/%s", conn.Kind(), conn.Name())
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	global := filepath.Join(dir, "global.toml")
	local := filepath.Join(dir, "local.toml")
	writeFile(t, global, `
[connections.pets_db]
url = "${PETS_URL}"
password = "secretref:env:PETS_PW"
max_open_conns = 1
`)
	writeFile(t, local, `
[connections.pets_db]
max_open_conns = 2
`)
	t.Setenv("PETS_URL", "sqlite:///:memory:")
	t.Setenv("PETS_PW", "hunter2")
	t.Setenv("DATACONN_CONNECTIONS__PETS_DB__CONN_MAX_LIFETIME", "5m")

	cfg, err := LoadConfig(Settings{Paths: []string{global, filepath.Join(dir, "missing.toml"), local}})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })

	if diff := cmp.Diff([]string{global, local}, cfg.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	sec, err := cfg.Resolver().Resolve(context.Background(), "pets_db", "sql", nil, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := config.Section{
		"url":               "sqlite:///:memory:",
		"password":          "hunter2",
		"max_open_conns":    int64(2),
		"conn_max_lifetime": "5m",
	}
	if diff := cmp.Diff(want, sec); diff != "" {
		t.Errorf("section mismatch (-want +got):\n%s", diff)
	}

	m, err := NewManager(connection.WithResolver(cfg.Resolver()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Clear(context.Background())
	db, err := Open[*sqlconn.Conn](context.Background(), m, "sql", connection.WithName("pets_db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !db.IsLive(context.Background()) {
		t.Error("connection from loaded config is not live")
	}
}

func TestLoadConfig_NoEnv(t *testing.T) {
	t.Setenv("DATACONN_CONNECTIONS__ONLY_ENV__URL", "sqlite:///:memory:")

	cfg, err := LoadConfig(Settings{Paths: []string{filepath.Join(t.TempDir(), "none.toml")}, NoEnv: true})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, ok := cfg.Store.Section("only_env"); ok {
		t.Error("environment overlay used with NoEnv")
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, "[connections.pets_db\nurl =")
	if _, err := LoadConfig(Settings{Paths: []string{path}}); err == nil {
		t.Error("expected parse error")
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}
