package sqlconn

import (
	"fmt"
	"maps"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/jonwraymond/dataconn/config"
)

// URL is a parsed dialect[+driver]://user:pass@host:port/database?k=v URL.
type URL struct {
	Dialect  string
	Driver   string
	Username string
	Password string
	Host     string
	Port     int
	Database string
	Query    map[string]string
}

// ParseURL parses a SQLAlchemy-style database URL.
//
// sqlite URLs carry a path instead of a host: sqlite:///relative.db,
// sqlite:////absolute.db and sqlite:///:memory:. A bare sqlite:// is an
// in-memory database.
func ParseURL(raw string) (*URL, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURL)
	}
	u := &URL{Query: map[string]string{}}
	u.Dialect, u.Driver, _ = strings.Cut(strings.ToLower(scheme), "+")

	if u.Dialect == "sqlite" {
		path, query, _ := strings.Cut(rest, "?")
		u.Database = strings.TrimPrefix(path, "/")
		if err := u.parseQuery(query); err != nil {
			return nil, err
		}
		return u, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.User != nil {
		u.Username = parsed.User.Username()
		u.Password, _ = parsed.User.Password()
	}
	u.Host = parsed.Hostname()
	if p := parsed.Port(); p != "" {
		u.Port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: port %q", ErrInvalidURL, p)
		}
	}
	u.Database = strings.TrimPrefix(parsed.Path, "/")
	if err := u.parseQuery(parsed.RawQuery); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *URL) parseQuery(raw string) error {
	if raw == "" {
		return nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("%w: query: %v", ErrInvalidURL, err)
	}
	for k, v := range values {
		if len(v) > 0 {
			u.Query[k] = v[len(v)-1]
		}
	}
	return nil
}

// URLFromSection builds the URL from a config section: either its url key
// or the individual dialect, driver, username, password, host, port,
// database and query keys. Individual keys override parts of url.
func URLFromSection(sec config.Section) (*URL, error) {
	var u *URL
	if raw := sec.String("url"); raw != "" {
		parsed, err := ParseURL(raw)
		if err != nil {
			return nil, err
		}
		u = parsed
	} else {
		if !sec.Has("dialect") {
			return nil, ErrMissingURL
		}
		u = &URL{Query: map[string]string{}}
	}

	for key, dst := range map[string]*string{
		"dialect":  &u.Dialect,
		"driver":   &u.Driver,
		"username": &u.Username,
		"password": &u.Password,
		"host":     &u.Host,
		"database": &u.Database,
	} {
		if sec.Has(key) {
			*dst = sec.String(key)
		}
	}
	u.Dialect = strings.ToLower(u.Dialect)
	u.Driver = strings.ToLower(u.Driver)

	if sec.Has("port") {
		port, err := sec.Int("port", 0)
		if err != nil {
			return nil, err
		}
		u.Port = port
	}
	for k, v := range sec.Table("query") {
		u.Query[k] = fmt.Sprint(v)
	}
	return u, nil
}

// InMemory reports whether u names an in-memory sqlite database.
func (u *URL) InMemory() bool {
	if u.Dialect != "sqlite" {
		return false
	}
	return u.Database == "" || u.Database == ":memory:" || u.Query["mode"] == "memory"
}

// Redacted returns u as a URL string with the password masked.
func (u *URL) Redacted() string {
	var b strings.Builder
	b.WriteString(u.Dialect)
	if u.Driver != "" {
		b.WriteString("+" + u.Driver)
	}
	b.WriteString("://")
	if u.Dialect == "sqlite" {
		b.WriteString("/" + u.Database)
	} else {
		if u.Username != "" {
			b.WriteString(url.User(u.Username).String())
			if u.Password != "" {
				b.WriteString(":***")
			}
			b.WriteString("@")
		}
		b.WriteString(u.hostPort(0))
		b.WriteString("/" + u.Database)
	}
	if q := u.encodeQuery(); q != "" {
		b.WriteString("?" + q)
	}
	return b.String()
}

func (u *URL) hostPort(defaultPort int) string {
	port := u.Port
	if port == 0 {
		port = defaultPort
	}
	if port == 0 {
		return u.Host
	}
	host := u.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (u *URL) encodeQuery() string {
	if len(u.Query) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range u.Query {
		values.Set(k, v)
	}
	return values.Encode()
}

// DriverDSN returns the database/sql driver name and DSN for u.
func (u *URL) DriverDSN() (driverName, dsn string, err error) {
	switch u.Dialect {
	case "sqlite", "sqlite3":
		if u.Driver != "" && u.Driver != "pysqlite" {
			return "", "", fmt.Errorf("%w: %s+%s", ErrUnsupportedDialect, u.Dialect, u.Driver)
		}
		db := u.Database
		if db == "" {
			db = ":memory:"
		}
		if q := u.encodeQuery(); q != "" {
			db += "?" + q
		}
		return "sqlite", db, nil

	case "postgresql", "postgres":
		switch u.Driver {
		case "", "pgx", "psycopg2", "psycopg", "asyncpg":
			driverName = "pgx"
		case "pq":
			driverName = "postgres"
		default:
			return "", "", fmt.Errorf("%w: %s+%s", ErrUnsupportedDialect, u.Dialect, u.Driver)
		}
		pg := url.URL{
			Scheme:   "postgres",
			Host:     u.hostPort(5432),
			Path:     "/" + u.Database,
			RawQuery: u.encodeQuery(),
		}
		if u.Username != "" {
			pg.User = url.UserPassword(u.Username, u.Password)
		}
		return driverName, pg.String(), nil

	case "mysql", "mariadb":
		cfg := mysql.NewConfig()
		cfg.User = u.Username
		cfg.Passwd = u.Password
		cfg.Net = "tcp"
		cfg.Addr = u.hostPort(3306)
		cfg.DBName = u.Database
		cfg.ParseTime = true
		if len(u.Query) > 0 {
			cfg.Params = maps.Clone(u.Query)
		}
		return "mysql", cfg.FormatDSN(), nil

	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, u.Dialect)
	}
}
