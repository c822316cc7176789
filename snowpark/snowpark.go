package snowpark

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/dataconn/cache"
	"github.com/jonwraymond/dataconn/config"
	"github.com/jonwraymond/dataconn/connection"
	"github.com/jonwraymond/dataconn/table"
)

// Kind is the tag of the Snowpark connection type.
const Kind = "snowpark"

// Type registers the Snowpark connection with a connection.Manager.
var Type = connection.Type{
	Kind:        Kind,
	DefaultName: "snowpark",
	New:         New,
}

// Conn is a Snowpark connection.
type Conn struct {
	*connection.Base[*Session]
}

// New builds a Conn from env.
func New(ctx context.Context, env connection.Env) (connection.Connection, error) {
	base, err := connection.NewBase(ctx, env, sessionDriver{})
	if err != nil {
		return nil, err
	}
	return &Conn{Base: base}, nil
}

// Session returns the installed session for statements that should not go
// through the cache.
func (c *Conn) Session() (*Session, error) { return c.Handle() }

// QueryOption configures Query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	params []any
	read   []connection.ReadOption
}

// WithParams binds positional parameters to '?' placeholders.
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

// Query runs a statement and returns its rows, cached without expiry unless
// WithTTL says otherwise.
func (c *Conn) Query(ctx context.Context, sql string, opts ...QueryOption) (*table.Table, error) {
	o := queryOptions{read: []connection.ReadOption{connection.WithTTL(cache.NoExpiry)}}
	for _, opt := range opts {
		opt(&o)
	}
	return connection.Read(ctx, c.Base, "query", queryArgs{SQL: sql, Params: o.params}, runQuery, o.read...)
}

func runQuery(ctx context.Context, s *Session, q queryArgs) (*table.Table, error) {
	res, err := s.Execute(ctx, q.SQL, Bind(q.Params...))
	if err != nil {
		return nil, classify(err)
	}
	return res.Table()
}

// Exec runs a statement once, without caching or retry.
func (c *Conn) Exec(ctx context.Context, sql string, params ...any) (*Result, error) {
	s, err := c.Handle()
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, sql, Bind(params...))
}

// classify marks API errors that another attempt cannot fix as permanent.
func classify(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && !apiErr.Transient() {
		return connection.Permanent(err)
	}
	return err
}

// Table converts the result to a table, typing values by column.
func (r *Result) Table() (*table.Table, error) {
	cols := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cols[i] = c.Name
	}
	t := table.New(cols...)
	for _, raw := range r.Data {
		row := make([]any, len(cols))
		for i := range row {
			if i < len(raw) {
				row[i] = convert(r.Columns[i], raw[i])
			}
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func convert(col Column, v *string) any {
	if v == nil {
		return nil
	}
	switch strings.ToLower(col.Type) {
	case "fixed":
		if col.Scale == 0 {
			if n, err := strconv.ParseInt(*v, 10, 64); err == nil {
				return n
			}
		}
		if f, err := strconv.ParseFloat(*v, 64); err == nil {
			return f
		}
	case "real":
		if f, err := strconv.ParseFloat(*v, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(*v); err == nil {
			return b
		}
	}
	return *v
}

// sessionDriver builds Sessions. Ping checks the token locally; an expired
// token fails it, so validate-on-get and retries replace the session.
type sessionDriver struct{}

func (sessionDriver) Connect(_ context.Context, cfg config.Section) (*Session, error) {
	return NewSession(cfg)
}

func (sessionDriver) Ping(_ context.Context, s *Session) error { return s.Check() }

func (sessionDriver) Close(s *Session) error {
	if s == nil {
		return nil
	}
	return s.Close()
}
