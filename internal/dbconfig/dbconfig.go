// Package dbconfig stores simple string key/value settings alongside the
// graph data itself, over a plain Get/Set/GetAll/Delete key/value table.
// The core's own tunables (acl.BulkListThreshold, cache TTLs) are
// constants and are not read from this table.
package dbconfig

import (
	"context"
	"database/sql"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/store"
)

// Store is the config key/value store.
type Store struct {
	backend store.Backend
}

// New constructs a Store.
func New(backend store.Backend) *Store {
	return &Store{backend: backend}
}

// Set upserts key's value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	upsert := `INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if s.backend.Dialect() == "mysql" {
		upsert = `INSERT INTO config (key, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	if _, err := s.backend.DB().ExecContext(ctx, upsert, key, value); err != nil {
		return coreerr.Internal(err, "set config %s", key)
	}
	return nil
}

// Get returns key's value, or "" if unset.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.backend.DB().QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", coreerr.Internal(err, "get config %s", key)
	}
	return value, nil
}

// GetAll returns every config key/value pair.
func (s *Store) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.backend.DB().QueryContext(ctx, `SELECT key, value FROM config ORDER BY key`)
	if err != nil {
		return nil, coreerr.Internal(err, "query all config")
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, coreerr.Internal(err, "scan config row")
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate config rows")
	}
	return out, nil
}

// Delete removes key, if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.backend.DB().ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
		return coreerr.Internal(err, "delete config %s", key)
	}
	return nil
}
