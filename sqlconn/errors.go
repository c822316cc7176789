package sqlconn

import (
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/jonwraymond/dataconn/connection"
)

var (
	// ErrMissingURL is returned when a section names neither url nor dialect.
	ErrMissingURL = errors.New("sqlconn: url or dialect is required")

	// ErrInvalidURL is returned for a URL that does not parse.
	ErrInvalidURL = errors.New("sqlconn: invalid url")

	// ErrUnsupportedDialect is returned for an unknown dialect or driver.
	ErrUnsupportedDialect = errors.New("sqlconn: unsupported dialect")
)

// sqlite primary result codes that clear up on their own.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// classify marks driver errors that a fresh connection cannot fix as
// permanent. Connection-level failures stay transient.
func classify(err error) error {
	if err == nil || transient(err) {
		return err
	}
	return connection.Permanent(err)
}

func transient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientSQLState(string(pqErr.Code))
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1040, 1053, 1205, 1213: // too many connections, shutdown, lock wait, deadlock
			return true
		}
		return false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
		return false
	}
	return true
}

// transientSQLState reports SQLSTATE classes 08 (connection exception),
// 40 (transaction rollback) and 57 (operator intervention) as transient.
func transientSQLState(code string) bool {
	if len(code) < 2 {
		return false
	}
	switch code[:2] {
	case "08", "40", "57":
		return true
	}
	return false
}
