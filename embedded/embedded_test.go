package embedded

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/resilience"
)

func open(t *testing.T, store *cache.Store, opts ...connection.OpenOption) *Conn {
	t.Helper()
	m, err := connection.NewManager(
		connection.WithTypes(Type),
		connection.WithCache(store),
		connection.WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Clear(context.Background()) })
	c, err := connection.As[*Conn](m.Open(context.Background(), Kind, opts...))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestNew_RequiresDatabase(t *testing.T) {
	m, err := connection.NewManager(connection.WithTypes(Type))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Open(context.Background(), Kind); !errors.Is(err, ErrMissingDatabase) {
		t.Errorf("err = %v, want ErrMissingDatabase", err)
	}
}

func TestQuery_DefaultTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewStore(cache.WithClock(func() time.Time { return now }))
	c := open(t, store, connection.WithOption("database", ":memory:"))
	ctx := context.Background()

	if _, err := c.Exec(ctx, `CREATE TABLE t (v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Exec(ctx, `INSERT INTO t VALUES (1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	first, err := c.Query(ctx, `SELECT count(*) AS n FROM t`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	_, _ = c.Exec(ctx, `INSERT INTO t VALUES (2)`)

	now = now.Add(59 * time.Minute)
	cached, _ := c.Query(ctx, `SELECT count(*) AS n FROM t`)
	if cached != first {
		t.Error("result expired before an hour")
	}

	now = now.Add(time.Minute)
	fresh, _ := c.Query(ctx, `SELECT count(*) AS n FROM t`)
	if diff := cmp.Diff([][]any{{int64(2)}}, fresh.Rows); diff != "" {
		t.Errorf("expired read mismatch (-want +got):\n%s", diff)
	}
}

func TestQuery_ZeroTTL(t *testing.T) {
	c := open(t, cache.NewStore(), connection.WithOption("database", ":memory:"))
	ctx := context.Background()

	a, _ := c.Query(ctx, `SELECT 1`, connection.WithTTL(0))
	b, _ := c.Query(ctx, `SELECT 1`, connection.WithTTL(0))
	if a == b {
		t.Error("TTL 0 should bypass the cache")
	}
}

func TestQuery_FileDatabaseAndReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analytics.db")
	ctx := context.Background()

	rw := open(t, cache.NewStore(), connection.WithOption("database", path))
	if _, err := rw.Exec(ctx, `CREATE TABLE events (kind TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rw.Exec(ctx, `INSERT INTO events VALUES ('click')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ro := open(t, cache.NewStore(), connection.WithOptions(map[string]any{"database": path, "read_only": true}))
	tbl, err := ro.Query(ctx, `SELECT kind FROM events`)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if diff := cmp.Diff([][]any{{"click"}}, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if _, err := ro.Exec(ctx, `INSERT INTO events VALUES ('view')`); err == nil {
		t.Error("write succeeded on a read-only connection")
	}
}

func TestQuery_EngineErrorIsPermanent(t *testing.T) {
	c := open(t, cache.NewStore(), connection.WithOption("database", ":memory:"))
	_, err := c.Query(context.Background(), `SELECT * FROM missing`)
	if err == nil {
		t.Fatal("expected error")
	}
	if connection.IsTransient(err) {
		t.Errorf("missing table classified as transient: %v", err)
	}
}

func TestCursor(t *testing.T) {
	c := open(t, cache.NewStore(), connection.WithOption("database", ":memory:"))
	ctx := context.Background()

	cur, err := c.Cursor(ctx)
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	var n int
	if err := cur.QueryRowContext(ctx, `SELECT 41 + 1`).Scan(&n); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 42 {
		t.Errorf("n = %d", n)
	}
	if err := cur.Close(); err != nil {
		t.Errorf("close cursor: %v", err)
	}

	_ = c.Close(ctx)
	if _, err := c.Cursor(ctx); !errors.Is(err, connection.ErrClosed) {
		t.Errorf("Cursor after Close: %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Section
		want string
	}{
		{"memory", config.Section{"database": ":memory:"}, ":memory:"},
		{"file", config.Section{"database": "a.db"}, "a.db"},
		{"read only", config.Section{"database": "a.db", "read_only": true}, "file:a.db?mode=ro"},
		{
			"pragmas",
			config.Section{"database": "a.db", "pragmas": map[string]any{"journal_mode": "wal", "busy_timeout": int64(5000)}},
			"file:a.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28wal%29",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DSN(tc.cfg)
			if err != nil {
				t.Fatalf("DSN: %v", err)
			}
			if got != tc.want {
				t.Errorf("DSN() = %q, want %q", got, tc.want)
			}
		})
	}
}
