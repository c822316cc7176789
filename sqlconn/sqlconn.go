package sqlconn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/observe"
	"github.com/jonwraymond/dataconn/table"
)

// Kind is the tag of the SQL connection type.
const Kind = "sql"

// Pool defaults.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultPingTimeout     = 10 * time.Second
)

// Type registers sqlconn with a connection.Manager.
var Type = connection.Type{
	Kind:        Kind,
	DefaultName: "sql",
	New:         New,
}

// Conn is a SQL connection.
type Conn struct {
	*connection.Base[*sql.DB]
	url        *URL
	autocommit bool
}

// New builds a Conn from env. It is the factory behind Type.
func New(ctx context.Context, env connection.Env) (connection.Connection, error) {
	u, err := URLFromSection(env.Config)
	if err != nil {
		return nil, err
	}
	autocommit, err := env.Config.Bool("autocommit", false)
	if err != nil {
		return nil, err
	}
	base, err := connection.NewBase(ctx, env, &dbDriver{})
	if err != nil {
		return nil, err
	}
	return &Conn{Base: base, url: u, autocommit: autocommit}, nil
}

// URL returns the parsed database URL.
func (c *Conn) URL() URL { return *c.url }

// DB returns the installed *sql.DB.
func (c *Conn) DB() (*sql.DB, error) { return c.Handle() }

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// QueryOption configures Query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	params []any
	read   []connection.ReadOption
}

// WithParams binds positional query parameters.
func WithParams(params ...any) QueryOption {
	return func(o *queryOptions) { o.params = params }
}

// WithTTL caches the result for d; 0 disables caching.
func WithTTL(d time.Duration) QueryOption {
	return WithReadOptions(connection.WithTTL(d))
}

// WithReadOptions passes options through to connection.Read.
func WithReadOptions(opts ...connection.ReadOption) QueryOption {
	return func(o *queryOptions) { o.read = append(o.read, opts...) }
}

type queryArgs struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// Query runs a read query and returns its rows. Results are cached without
// expiry unless WithTTL says otherwise, and transient failures are retried
// on a reset connection.
func (c *Conn) Query(ctx context.Context, query string, opts ...QueryOption) (*table.Table, error) {
	o := queryOptions{read: []connection.ReadOption{connection.WithTTL(cache.NoExpiry)}}
	for _, opt := range opts {
		opt(&o)
	}
	return connection.Read(ctx, c.Base, "query", queryArgs{SQL: query, Params: o.params}, runQuery, o.read...)
}

func runQuery(ctx context.Context, db *sql.DB, q queryArgs) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, classify(err)
	}
	t, err := table.FromRows(rows)
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// Exec runs a statement without caching or retry.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

// Session runs fn inside a transaction, committing if fn returns nil and
// rolling back otherwise. With autocommit set fn runs directly on the pool.
func (c *Conn) Session(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	db, err := c.Handle()
	if err != nil {
		return err
	}
	if c.autocommit {
		return fn(ctx, db)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlconn: begin: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.Logger().Warn(ctx, "rollback failed", observe.Err(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlconn: commit: %w", err)
	}
	return nil
}

// dbDriver opens *sql.DB handles.
type dbDriver struct{}

func (dbDriver) Connect(ctx context.Context, cfg config.Section) (*sql.DB, error) {
	u, err := URLFromSection(cfg)
	if err != nil {
		return nil, err
	}
	name, dsn, err := u.DriverDSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlconn: open %s: %w", u.Redacted(), err)
	}
	if err := configurePool(db, u, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlconn: ping %s: %w", u.Redacted(), err)
	}
	return db, nil
}

func configurePool(db *sql.DB, u *URL, cfg config.Section) error {
	if u.InMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
		return nil
	}

	maxOpen, err := cfg.Int("max_open_conns", DefaultMaxOpenConns)
	if err != nil {
		return err
	}
	maxIdle, err := cfg.Int("max_idle_conns", DefaultMaxIdleConns)
	if err != nil {
		return err
	}
	lifetime, err := cfg.Duration("conn_max_lifetime", DefaultConnMaxLifetime)
	if err != nil {
		return err
	}
	idleTime, err := cfg.Duration("conn_max_idle_time", 0)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(idleTime)
	return nil
}

func (dbDriver) Ping(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}

func (dbDriver) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
