package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/dataconn/secret"
)

func writeConfig(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTOML_Layering(t *testing.T) {
	dir := t.TempDir()
	global := writeConfig(t, dir, "global.toml", `
[connections.pets_db]
url = "sqlite:///global.db"
autocommit = true

[connections.pets_db.query]
mode = "ro"
cache = "shared"

[connections.openai]
api_key = "sk-global"
`)
	project := writeConfig(t, dir, "project.toml", `
[connections.pets_db]
url = "sqlite:///:memory:"

[connections.pets_db.query]
mode = "rw"

[secrets.env]
prefix = "PETS_"
`)

	st, err := LoadTOML(global, filepath.Join(dir, "missing.toml"), project)
	if err != nil {
		t.Fatalf("LoadTOML() error = %v", err)
	}

	got, ok := st.Section("pets_db")
	if !ok {
		t.Fatal("pets_db section missing")
	}
	want := Section{
		"url":        "sqlite:///:memory:",
		"autocommit": true,
		"query":      map[string]any{"mode": "rw", "cache": "shared"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pets_db mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{global, project}, st.Files()); diff != "" {
		t.Errorf("Files() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"openai", "pets_db"}, st.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if p := st.SecretProviders()["env"]; p["prefix"] != "PETS_" {
		t.Errorf("SecretProviders()[env] = %v", p)
	}
}

func TestLoadTOML_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "bad.toml", "[connections.x\nurl = 1\n")

	_, err := LoadTOML(path)
	if err == nil {
		t.Fatal("LoadTOML() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q does not name %s", err, path)
	}
}

func TestParseTOML_SectionIsCopy(t *testing.T) {
	st, err := ParseTOML([]byte("[connections.a]\nk = \"v\"\n"))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}
	sec, _ := st.Section("a")
	sec["k"] = "changed"

	again, _ := st.Section("a")
	if again["k"] != "v" {
		t.Errorf("store mutated through returned section: %v", again)
	}
}

func TestEnvStore(t *testing.T) {
	env := &EnvStore{Environ: func() []string {
		return []string{
			"DATACONN_CONNECTIONS__PETS_DB__URL=sqlite:///:memory:",
			"DATACONN_CONNECTIONS__PETS_DB__MAX_OPEN_CONNS=4",
			"DATACONN_CONNECTIONS__OTHER__URL=x",
			"UNRELATED=1",
		}
	}}

	got, ok := env.Section("pets_db")
	if !ok {
		t.Fatal("Section() ok = false")
	}
	want := Section{"url": "sqlite:///:memory:", "max_open_conns": "4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Section() mismatch (-want +got):\n%s", diff)
	}
	if n, err := got.Int("max_open_conns", 0); err != nil || n != 4 {
		t.Errorf("Int() = %d, %v", n, err)
	}
	if _, ok := env.Section("absent"); ok {
		t.Error("Section(absent) ok = true")
	}
}

func TestLayered_LaterWins(t *testing.T) {
	base := NewMapStore(map[string]Section{"db": {"url": "a", "autocommit": false}})
	over := NewMapStore(map[string]Section{"db": {"url": "b"}})

	got, ok := Layered(base, nil, over).Section("db")
	if !ok {
		t.Fatal("Section() ok = false")
	}
	if diff := cmp.Diff(Section{"url": "b", "autocommit": false}, got); diff != "" {
		t.Errorf("Section() mismatch (-want +got):\n%s", diff)
	}
}

func TestSectionName(t *testing.T) {
	tests := []struct{ name, def, want string }{
		{"default", "sql", "sql"},
		{"", "sql", "sql"},
		{"pets_db", "sql", "pets_db"},
	}
	for _, tt := range tests {
		if got := SectionName(tt.name, tt.def); got != tt.want {
			t.Errorf("SectionName(%q, %q) = %q, want %q", tt.name, tt.def, got, tt.want)
		}
	}
}

func TestResolver_Precedence(t *testing.T) {
	t.Setenv("PETS_PASSWORD", "hunter2")
	store := NewMapStore(map[string]Section{
		"sql": {"dialect": "postgresql", "password": "secretref:env:PETS_PASSWORD", "port": int64(5432)},
	})
	r := NewResolver(store, secret.NewResolver(true, &secret.EnvProvider{}))

	got, err := r.Resolve(context.Background(), DefaultName, "sql",
		map[string]any{"port": int64(1), "autocommit": false},
		map[string]any{"port": int64(6543)},
	)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := Section{
		"dialect":    "postgresql",
		"password":   "hunter2",
		"port":       int64(6543),
		"autocommit": false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_MissingSectionIsEmpty(t *testing.T) {
	r := NewResolver(NewMapStore(nil), nil)

	got, err := r.Resolve(context.Background(), "nowhere", "files", nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", got)
	}
}

func TestResolver_SecretErrorNamesSection(t *testing.T) {
	store := NewMapStore(map[string]Section{"openai": {"api_key": "${DATACONN_TEST_NO_SUCH_KEY}"}})
	r := NewResolver(store, nil)

	_, err := r.Resolve(context.Background(), "openai", "openai", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "connections.openai") {
		t.Errorf("Resolve() error = %v, want section name", err)
	}
}

func TestSection_Accessors(t *testing.T) {
	s := Section{
		"host":    "db",
		"port":    int64(5432),
		"ratio":   0.5,
		"debug":   "true",
		"timeout": "1500ms",
		"ttl":     int64(60),
		"bad":     []any{1},
		"query":   map[string]any{"sslmode": "disable"},
	}

	if s.String("port") != "5432" || s.String("missing") != "" {
		t.Errorf("String() unexpected")
	}
	if got := s.StringOr("missing", "fallback"); got != "fallback" {
		t.Errorf("StringOr() = %q", got)
	}
	if _, err := s.Require("missing"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("Require() error = %v, want ErrMissingKey", err)
	}
	if n, err := s.Int("port", 0); err != nil || n != 5432 {
		t.Errorf("Int() = %d, %v", n, err)
	}
	if n, err := s.Int("missing", 7); err != nil || n != 7 {
		t.Errorf("Int(default) = %d, %v", n, err)
	}
	if _, err := s.Int("bad", 0); !errors.Is(err, ErrWrongType) {
		t.Errorf("Int(bad) error = %v, want ErrWrongType", err)
	}
	if f, err := s.Float("ratio", 0); err != nil || f != 0.5 {
		t.Errorf("Float() = %v, %v", f, err)
	}
	if b, err := s.Bool("debug", false); err != nil || !b {
		t.Errorf("Bool() = %v, %v", b, err)
	}
	if d, err := s.Duration("timeout", 0); err != nil || d != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, %v", d, err)
	}
	if d, err := s.Duration("ttl", 0); err != nil || d != time.Minute {
		t.Errorf("Duration(seconds) = %v, %v", d, err)
	}
	if q := s.Table("query"); q.String("sslmode") != "disable" {
		t.Errorf("Table() = %v", q)
	}
	if keys := s.Without("bad", "query").Keys(); len(keys) != 6 {
		t.Errorf("Without().Keys() = %v", keys)
	}
}
