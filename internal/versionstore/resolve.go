package versionstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/types"
)

// resolveLatest finds the latest row for a chain given any member id: a
// direct hit where id=? and is_latest=true, else a forward walk along
// previous_version_id successors until the latest row is reached. The
// forward walk is a recursive CTE when the backend supports it; otherwise
// an iterative Go loop bounded by chain length, since version strictly
// increases along the chain.
func (s *Store) resolveLatest(ctx context.Context, kind types.Kind, anyID string) (*types.Row, error) {
	table := tableFor(kind)
	cols := columnsFor(kind)

	if direct, err := queryRow(ctx, s.db(), kind, `SELECT `+cols+` FROM `+table+` WHERE id = ? AND is_latest = 1`, anyID); err != nil {
		return nil, err
	} else if direct != nil {
		return direct, nil
	}

	if s.backend.SupportsRecursiveCTE() {
		row, err := queryRow(ctx, s.db(), kind, `
			WITH RECURSIVE chain(id) AS (
				SELECT id FROM `+table+` WHERE id = ?
				UNION ALL
				SELECT t.id FROM `+table+` t JOIN chain c ON t.previous_version_id = c.id
			)
			SELECT `+prefixCols(cols, "t")+` FROM `+table+` t JOIN chain c ON t.id = c.id WHERE t.is_latest = 1
		`, anyID)
		if err != nil {
			return nil, err
		}
		return row, nil // nil, nil => chain not found
	}

	return s.resolveLatestIterative(ctx, kind, anyID)
}

func (s *Store) resolveLatestIterative(ctx context.Context, kind types.Kind, anyID string) (*types.Row, error) {
	table := tableFor(kind)
	cols := columnsFor(kind)

	cur := anyID
	seen := map[string]bool{}
	for {
		if seen[cur] {
			// A cycle would violate the strictly increasing version order;
			// treat as corruption, not found.
			return nil, nil
		}
		seen[cur] = true

		row, err := queryRow(ctx, s.db(), kind, `SELECT `+cols+` FROM `+table+` WHERE id = ?`, cur)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		if row.IsLatest {
			return row, nil
		}

		next, err := s.db().QueryContext(ctx, `SELECT id FROM `+table+` WHERE previous_version_id = ?`, cur)
		if err != nil {
			return nil, coreerr.Internal(err, "query successor")
		}
		var successor string
		found := false
		for next.Next() {
			if err := next.Scan(&successor); err != nil {
				_ = next.Close()
				return nil, coreerr.Internal(err, "scan successor")
			}
			found = true
			break
		}
		_ = next.Close()
		if !found {
			return nil, nil
		}
		cur = successor
	}
}

// prefixCols qualifies a flat "a, b, c" column list with a table alias.
// cols is always one of the package's own constant column lists, never
// user input.
func prefixCols(cols, alias string) string {
	parts := strings.Split(cols, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func (s *Store) db() *sql.DB { return s.backend.DB() }
