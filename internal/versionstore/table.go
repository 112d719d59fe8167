package versionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/types"
)

func tableFor(kind types.Kind) string {
	if kind == types.KindLink {
		return "links"
	}
	return "entities"
}

const entityColumns = `id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id`
const linkColumns = `id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id, source_entity_id, target_entity_id`

func columnsFor(kind types.Kind) string {
	if kind == types.KindLink {
		return linkColumns
	}
	return entityColumns
}

// scanRow reads one row from a *sql.Rows positioned by columnsFor(kind).
func scanRow(kind types.Kind, scanner interface{ Scan(...any) error }) (*types.Row, error) {
	r := &types.Row{Kind: kind}
	var propsJSON string
	var prevID sql.NullString
	var aclID sql.NullInt64
	var isDeleted, isLatest int

	dest := []any{&r.ID, &r.TypeID, &propsJSON, &r.Version, &prevID, &r.CreatedAt, &r.CreatedBy, &isDeleted, &isLatest, &aclID}
	if kind == types.KindLink {
		dest = append(dest, &r.SourceEntityID, &r.TargetEntityID)
	}
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	r.PreviousVersionID = prevID.String
	r.IsDeleted = isDeleted != 0
	r.IsLatest = isLatest != 0
	if aclID.Valid {
		id := aclID.Int64
		r.ACLID = &id
	}
	if propsJSON == "" {
		r.Properties = types.Properties{}
	} else if err := json.Unmarshal([]byte(propsJSON), &r.Properties); err != nil {
		return nil, coreerr.Internal(err, "decode properties for %s", r.ID)
	}
	return r, nil
}

func queryRow(ctx context.Context, db *sql.DB, kind types.Kind, query string, args ...any) (*types.Row, error) {
	row := db.QueryRowContext(ctx, query, args...)
	r, err := scanRow(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Internal(err, "scan %s row", tableFor(kind))
	}
	return r, nil
}

func queryRows(ctx context.Context, db *sql.DB, kind types.Kind, query string, args ...any) ([]*types.Row, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreerr.Internal(err, "query %s", tableFor(kind))
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Row
	for rows.Next() {
		r, err := scanRow(kind, rows)
		if err != nil {
			return nil, coreerr.Internal(err, "scan %s row", tableFor(kind))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate %s", tableFor(kind))
	}
	return out, nil
}

func marshalProperties(props types.Properties) (string, error) {
	if props == nil {
		props = types.Properties{}
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(b), nil
}
