package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateInitialSchema creates every table in the persisted state layout:
// types, entities, links, acls, acl_entries, groups, group_members,
// config. The users table belongs to the auth collaborator and is not
// created here — the core only reads identity, never owns the table.
func migrateInitialSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	pk := "TEXT PRIMARY KEY"
	autoInc := "INTEGER PRIMARY KEY AUTOINCREMENT"
	jsonCol := "TEXT" // JSON stored as TEXT on both dialects; json_extract works over TEXT on SQLite, JSON_EXTRACT over TEXT/JSON on MySQL/Dolt.
	if dialect == DialectMySQL {
		autoInc = "BIGINT PRIMARY KEY AUTO_INCREMENT"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS types (
			id %s,
			name TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			json_schema %s NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT ''
		)`, pk, jsonCol),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS acls (
			id %s,
			hash TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`, autoInc),

		`CREATE TABLE IF NOT EXISTS acl_entries (
			acl_id INTEGER NOT NULL,
			principal_type TEXT NOT NULL,
			principal_id TEXT NOT NULL,
			permission TEXT NOT NULL,
			PRIMARY KEY (acl_id, principal_type, principal_id, permission)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_acl_entries_principal ON acl_entries (principal_type, principal_id, permission)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS groups (
			id %s,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT ''
		)`, pk),

		`CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL,
			member_type TEXT NOT NULL,
			member_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (group_id, member_type, member_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_members_member ON group_members (member_type, member_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
			id %s,
			type_id TEXT NOT NULL,
			properties %s NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL,
			previous_version_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			is_deleted INTEGER NOT NULL DEFAULT 0,
			is_latest INTEGER NOT NULL DEFAULT 1,
			acl_id INTEGER
		)`, pk, jsonCol),

		`CREATE INDEX IF NOT EXISTS idx_entities_prev ON entities (previous_version_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_latest ON entities (is_latest)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_acl ON entities (acl_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_type ON entities (type_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS links (
			id %s,
			type_id TEXT NOT NULL,
			source_entity_id TEXT NOT NULL,
			target_entity_id TEXT NOT NULL,
			properties %s NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL,
			previous_version_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			is_deleted INTEGER NOT NULL DEFAULT 0,
			is_latest INTEGER NOT NULL DEFAULT 1,
			acl_id INTEGER
		)`, pk, jsonCol),

		`CREATE INDEX IF NOT EXISTS idx_links_prev ON links (previous_version_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_latest ON links (is_latest)`,
		`CREATE INDEX IF NOT EXISTS idx_links_acl ON links (acl_id)`,
		`CREATE INDEX IF NOT EXISTS idx_links_source ON links (source_entity_id, is_latest)`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links (target_entity_id, is_latest)`,
		`CREATE INDEX IF NOT EXISTS idx_links_type ON links (type_id)`,

		`CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s, err)
		}
	}
	return nil
}
