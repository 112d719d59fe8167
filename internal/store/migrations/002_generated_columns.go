package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateGeneratedColumns adds the generated_columns metadata table (the
// filter compiler's known-path-to-column mapping) and materializes a
// couple of common property paths as real generated columns on SQLite so
// their indexes can accelerate filter evaluation: index the common case,
// json_extract the rest. Dolt/MySQL lacks SQLite's VIRTUAL
// generated-column-over-JSON shortcut in the same form, so on that
// dialect the mapping table is still populated but no physical generated
// column is added. The filter compiler substitutes a column only for
// paths in the ColumnMap its caller supplies; versionstore.Find supplies
// none, so its queries use json_extract on both dialects.
func migrateGeneratedColumns(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generated_columns (
			object_kind TEXT NOT NULL,
			json_path TEXT NOT NULL,
			column_name TEXT NOT NULL,
			PRIMARY KEY (object_kind, json_path)
		)`); err != nil {
		return fmt.Errorf("create generated_columns: %w", err)
	}

	seed := []struct{ kind, path, col string }{
		{"entity", "$.name", "prop_name"},
		{"entity", "$.status", "prop_status"},
		{"link", "$.status", "prop_status"},
	}

	if dialect == DialectSQLite {
		alters := []string{
			`ALTER TABLE entities ADD COLUMN prop_name TEXT GENERATED ALWAYS AS (json_extract(properties, '$.name')) VIRTUAL`,
			`ALTER TABLE entities ADD COLUMN prop_status TEXT GENERATED ALWAYS AS (json_extract(properties, '$.status')) VIRTUAL`,
			`ALTER TABLE links ADD COLUMN prop_status TEXT GENERATED ALWAYS AS (json_extract(properties, '$.status')) VIRTUAL`,
		}
		for _, a := range alters {
			if _, err := db.ExecContext(ctx, a); err != nil {
				return fmt.Errorf("exec %q: %w", a, err)
			}
		}
		idx := []string{
			`CREATE INDEX IF NOT EXISTS idx_entities_prop_name ON entities (prop_name)`,
			`CREATE INDEX IF NOT EXISTS idx_entities_prop_status ON entities (prop_status)`,
			`CREATE INDEX IF NOT EXISTS idx_links_prop_status ON links (prop_status)`,
		}
		for _, s := range idx {
			if _, err := db.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("exec %q: %w", s, err)
			}
		}
	}

	insertSQL := `INSERT OR IGNORE INTO generated_columns (object_kind, json_path, column_name) VALUES (?, ?, ?)`
	if dialect == DialectMySQL {
		insertSQL = `INSERT IGNORE INTO generated_columns (object_kind, json_path, column_name) VALUES (?, ?, ?)`
	}
	for _, s := range seed {
		if _, err := db.ExecContext(ctx, insertSQL, s.kind, s.path, s.col); err != nil {
			return fmt.Errorf("seed generated_columns %s/%s: %w", s.kind, s.path, err)
		}
	}
	return nil
}
