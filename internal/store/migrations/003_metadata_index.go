package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateMetadataIndex adds a flattened scalar index over entity/link
// properties. Only the table and its index are created here; no code in
// this module writes rows into it, and the filter compiler does not read
// it (it uses json_extract or a mapped generated column).
func migrateMetadataIndex(ctx context.Context, db *sql.DB, dialect Dialect) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS object_property_index (
			object_kind TEXT NOT NULL,
			object_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value_text TEXT,
			value_real REAL,
			PRIMARY KEY (object_kind, object_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_object_property_index_key ON object_property_index (object_kind, key, value_text)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}
	return nil
}
