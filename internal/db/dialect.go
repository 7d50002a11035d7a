// internal/db/dialect.go
//
// SQL dialects supported by the server:
//   - sqlite:   local development and tests (mattn/go-sqlite3).
//   - postgres: hosted Postgres, e.g. a managed Postgres-as-a-service (lib/pq).
//
// Queries are written once with `?` placeholders; the Postgres dialect
// rewrites them to $1, $2, ... before they reach the driver.

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect hides the differences between the supported drivers.
type Dialect interface {
	// Name is the short name used in configuration ("sqlite", "postgres").
	Name() string
	// DriverName returns the database/sql driver name.
	DriverName() string
	// DSN turns the configured source into a driver DSN.
	DSN(source string) (string, error)
	// Rebind rewrites `?` placeholders into the dialect's syntax.
	Rebind(query string) string
	// Configure applies pool settings and per-connection pragmas.
	Configure(db *sql.DB, dsn string) error
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "supabase":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", name)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

// DSN ensures the parent directory exists for file paths like ./data/app.db
// and adds busy timeout and WAL journaling.
func (sqliteDialect) DSN(source string) (string, error) {
	if !isMemory(source) {
		dir := filepath.Dir(source)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", nil
}

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) Configure(db *sql.DB, dsn string) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	// every connection to :memory: is its own database
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}
	return nil
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) DSN(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("postgres: DATABASE_URL is empty")
	}
	return source, nil
}

// Rebind converts ? placeholders to $1, $2, ... . Queries in this module
// never carry a literal question mark.
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

func (postgresDialect) Configure(db *sql.DB, _ string) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func isMemory(source string) bool {
	return strings.Contains(source, ":memory:") || strings.Contains(source, "mode=memory")
}
