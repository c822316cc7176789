package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"

	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/table"
)

// Kind is the tag of the embedded connection type.
const Kind = "embedded"

// DefaultTTL is how long Query results are cached unless told otherwise.
const DefaultTTL = time.Hour

// ErrMissingDatabase is returned when no database is configured.
var ErrMissingDatabase = errors.New("embedded: database is required")

// Type registers the embedded database with a connection.Manager.
var Type = connection.Type{
	Kind:        Kind,
	DefaultName: "embedded",
	New:         New,
}

// Conn is an embedded database connection.
type Conn struct {
	*connection.Base[*sql.DB]
}

// New builds a Conn from env.
func New(ctx context.Context, env connection.Env) (connection.Connection, error) {
	if _, err := env.Config.Require("database"); err != nil {
		return nil, ErrMissingDatabase
	}
	base, err := connection.NewBase(ctx, env, fileDriver{})
	if err != nil {
		return nil, err
	}
	return &Conn{Base: base}, nil
}

// Query runs a read query. Results are cached for DefaultTTL unless
// connection.WithTTL overrides it.
func (c *Conn) Query(ctx context.Context, query string, opts ...connection.ReadOption) (*table.Table, error) {
	opts = append([]connection.ReadOption{connection.WithTTL(DefaultTTL)}, opts...)
	return connection.Read(ctx, c.Base, "query", query, runQuery, opts...)
}

func runQuery(ctx context.Context, db *sql.DB, query string) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	return table.FromRows(rows)
}

// Exec runs a statement without caching or retry.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

// Cursor returns a dedicated connection from the pool. The caller closes it.
// An in-memory database has a single connection, so close the cursor before
// the next Query.
func (c *Conn) Cursor(ctx context.Context) (*sql.Conn, error) {
	db, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return db.Conn(ctx)
}

// classify treats everything the engine reports except busy and locked
// databases as permanent.
func classify(err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
			return err
		}
		return connection.Permanent(err)
	}
	return err
}

// DSN returns the sqlite DSN for a config section.
func DSN(cfg config.Section) (string, error) {
	db, err := cfg.Require("database")
	if err != nil {
		return "", ErrMissingDatabase
	}
	readOnly, err := cfg.Bool("read_only", false)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	if readOnly && db != ":memory:" {
		q.Set("mode", "ro")
	}
	pragmas := cfg.Table("pragmas")
	for _, name := range pragmas.Keys() {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", name, pragmas.String(name)))
	}
	if len(q) == 0 {
		return db, nil
	}
	if db != ":memory:" {
		db = "file:" + db
	}
	return db + "?" + q.Encode(), nil
}

type fileDriver struct{}

func (fileDriver) Connect(ctx context.Context, cfg config.Section) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("embedded: open: %w", err)
	}
	if cfg.String("database") == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedded: ping: %w", err)
	}
	return db, nil
}

func (fileDriver) Ping(ctx context.Context, db *sql.DB) error { return db.PingContext(ctx) }

func (fileDriver) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
