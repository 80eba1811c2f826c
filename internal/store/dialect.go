package store

import (
	"database/sql"
	"strconv"
	"strings"
)

// dialect isolates everything that differs between the backing stores.
// Queries are written with "?" placeholders and rebound per dialect.
type dialect interface {
	Name() string
	DriverName() string
	Rebind(query string) string
	// TruncateToMonth returns an expression yielding the first day of the
	// month of a 'YYYY-MM-DD' text column, in the same text form.
	TruncateToMonth(col string) string
	// TxOptions are the options of every write transaction.
	TxOptions() *sql.TxOptions
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) TruncateToMonth(col string) string {
	return "strftime('%Y-%m-01', " + col + ")"
}

// SQLite transactions are serializable; the write lock is taken up front
// through the _txlock=immediate DSN parameter.
func (sqliteDialect) TxOptions() *sql.TxOptions { return nil }

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) TruncateToMonth(col string) string {
	return "to_char(date_trunc('month', CAST(" + col + " AS date)), 'YYYY-MM-DD')"
}

func (postgresDialect) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

// sqliteDSN turns a file path into a modernc DSN with foreign keys on, a
// busy timeout and immediate write locks.
func sqliteDSN(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}
