package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "modernc.org/sqlite"             // SQLite driver (pure Go)
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store over database/sql for SQLite and Postgres.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the database behind driver and dsn and verifies the
// connection. For SQLite, dsn is a file path or ":memory:".
func Open(driver, dsn string) (*SQLStore, error) {
	var driverName string
	switch driver {
	case DriverSQLite:
		driverName = "sqlite"
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// The driver serializes writes anyway, and pooled connections to an
		// in-memory database would each see a different database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

// sqliteDSN appends the pragmas every connection needs. A dsn that already
// carries parameters is passed through untouched.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	if path == ":memory:" {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver reports which backend the store was opened with.
func (s *SQLStore) Driver() string {
	return s.driver
}

// DB exposes the raw handle for migration tooling.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// q rewrites ? placeholders into the $n form Postgres expects. SQLite
// queries pass through unchanged.
func (s *SQLStore) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
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

// Ensure SQLStore implements the Store interface.
var _ Store = (*SQLStore)(nil)
