// Package sqlite implements store.Backend over modernc.org/sqlite, the
// pure-Go SQLite driver (no CGO): a single *sql.DB, PRAGMA tuning on
// open, and a numbered migrations table applied in order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/graphvault/core/internal/store/migrations"
)

// Backend is the SQLite-backed store.Backend.
type Backend struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite database at path and applies any
// pending migrations. path may be ":memory:" for ephemeral stores used in
// tests.
func Open(ctx context.Context, path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows exactly one writer; serialize at the pool level so
	// "database is locked" becomes a queueing delay, not an error.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	b := &Backend{db: db}
	if err := migrations.Apply(ctx, db, migrations.DialectSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return b, nil
}

// DB returns the underlying connection pool.
func (b *Backend) DB() *sql.DB { return b.db }

// JSONExtract returns SQLite's native json_extract(column, path).
func (b *Backend) JSONExtract(column, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", column, path)
}

// SupportsRecursiveCTE is true: SQLite has supported WITH RECURSIVE since 3.8.3.
func (b *Backend) SupportsRecursiveCTE() bool { return true }

// Dialect identifies this backend for dialect-sensitive callers.
func (b *Backend) Dialect() string { return "sqlite" }

// Close releases the connection pool.
func (b *Backend) Close() error { return b.db.Close() }
