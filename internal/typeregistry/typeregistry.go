// Package typeregistry is the catalog of named entity and link types
// that versionstore's Create validates TypeID against.
package typeregistry

import (
	"context"
	"database/sql"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// Registry is the type catalog.
type Registry struct {
	backend store.Backend
	clock   idgen.Clock
}

// New constructs a Registry.
func New(backend store.Backend, clock idgen.Clock) *Registry {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &Registry{backend: backend, clock: clock}
}

// CreateInput carries Create's parameters.
type CreateInput struct {
	Name        string
	Category    types.TypeCategory
	Description string
	JSONSchema  string
	Creator     string
}

// Create registers a new type. Name is unique across both
// categories, matching the shared namespace entities and links draw
// TypeID from.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*types.Type, error) {
	t := &types.Type{
		ID:          idgen.New(),
		Name:        in.Name,
		Category:    in.Category,
		Description: in.Description,
		JSONSchema:  in.JSONSchema,
		CreatedAt:   r.clock.Now(),
		CreatedBy:   in.Creator,
	}
	_, err := r.backend.DB().ExecContext(ctx, `
		INSERT INTO types (id, name, category, description, json_schema, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Category, t.Description, t.JSONSchema, t.CreatedAt, t.CreatedBy)
	if err != nil {
		return nil, coreerr.Internal(err, "insert type %s", in.Name)
	}
	return t, nil
}

// Get fetches a type by id.
func (r *Registry) Get(ctx context.Context, id string) (*types.Type, error) {
	row := r.backend.DB().QueryRowContext(ctx, `
		SELECT id, name, category, description, json_schema, created_at, created_by FROM types WHERE id = ?
	`, id)
	t, err := scanType(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.TypeNotFound("type %s not found", id)
	}
	if err != nil {
		return nil, coreerr.Internal(err, "scan type %s", id)
	}
	return t, nil
}

// List returns every registered type, optionally narrowed to one category.
func (r *Registry) List(ctx context.Context, category types.TypeCategory) ([]*types.Type, error) {
	query := `SELECT id, name, category, description, json_schema, created_at, created_by FROM types`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.backend.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreerr.Internal(err, "query types")
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Type
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, coreerr.Internal(err, "scan type row")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate types")
	}
	return out, nil
}

// Count reports how many non-deleted, current entity/link chains
// reference typeID — used by Delete's usage gate.
func (r *Registry) Count(ctx context.Context, typeID string) (int64, error) {
	var entityCount, linkCount int64
	if err := r.backend.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE type_id = ? AND is_latest = 1 AND is_deleted = 0`, typeID).Scan(&entityCount); err != nil {
		return 0, coreerr.Internal(err, "count entities for type %s", typeID)
	}
	if err := r.backend.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE type_id = ? AND is_latest = 1 AND is_deleted = 0`, typeID).Scan(&linkCount); err != nil {
		return 0, coreerr.Internal(err, "count links for type %s", typeID)
	}
	return entityCount + linkCount, nil
}

// Update changes a type's metadata fields only — description and
// json_schema are mutable; name and category are fixed for the type's
// lifetime.
func (r *Registry) Update(ctx context.Context, id, description, jsonSchema string) (*types.Type, error) {
	res, err := r.backend.DB().ExecContext(ctx, `
		UPDATE types SET description = ?, json_schema = ? WHERE id = ?
	`, description, jsonSchema, id)
	if err != nil {
		return nil, coreerr.Internal(err, "update type %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, coreerr.TypeNotFound("type %s not found", id)
	}
	return r.Get(ctx, id)
}

// Delete removes a type, refusing if any non-deleted entity or link
// still references it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	count, err := r.Count(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return coreerr.Conflict(coreerr.CodeTypeInUse, "type %s is referenced by %d objects", id, count)
	}
	res, err := r.backend.DB().ExecContext(ctx, `DELETE FROM types WHERE id = ?`, id)
	if err != nil {
		return coreerr.Internal(err, "delete type %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coreerr.TypeNotFound("type %s not found", id)
	}
	return nil
}

// Validate implements versionstore.TypeChecker: the named type must
// exist and its category must agree with kind.
func (r *Registry) Validate(ctx context.Context, typeID string, kind types.Kind) error {
	t, err := r.Get(ctx, typeID)
	if err != nil {
		return err
	}
	want := types.CategoryEntity
	if kind == types.KindLink {
		want = types.CategoryLink
	}
	if t.Category != want {
		return coreerr.Validation(coreerr.CodeInvalidFields, "type %s is category %s, expected %s for a %s", typeID, t.Category, want, kind)
	}
	return nil
}

func scanType(scanner interface{ Scan(...any) error }) (*types.Type, error) {
	t := &types.Type{}
	if err := scanner.Scan(&t.ID, &t.Name, &t.Category, &t.Description, &t.JSONSchema, &t.CreatedAt, &t.CreatedBy); err != nil {
		return nil, err
	}
	return t, nil
}
