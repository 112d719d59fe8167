// Package migrations holds the numbered, ordered migration scripts
// applied at deploy time: one function per migration, each skipped when
// schema_migrations already records its version.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect selects which SQL variant a migration's DDL should use.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql" // Dolt speaks the MySQL dialect
)

// Migration is one numbered, named schema step.
type Migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, db *sql.DB, dialect Dialect) error
}

// All is the ordered list of migrations applied by Apply.
var All = []Migration{
	{Version: 1, Name: "initial_schema", Apply: migrateInitialSchema},
	{Version: 2, Name: "generated_columns", Apply: migrateGeneratedColumns},
	{Version: 3, Name: "metadata_index", Apply: migrateMetadataIndex},
}

// Apply creates the schema_migrations tracking table if needed, then runs
// every migration whose version has not yet been recorded, in order.
func Apply(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("query schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	for _, m := range All {
		if applied[m.Version] {
			continue
		}
		if err := m.Apply(ctx, db, dialect); err != nil {
			return fmt.Errorf("migration %d_%s: %w", m.Version, m.Name, err)
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)
		`, m.Version, m.Name, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}
