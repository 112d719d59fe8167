package versionstore

import (
	"context"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/filter"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// FindInput carries Find's parameters: a property filter over a single
// object kind and (optional) type, gated by the caller's read permission.
type FindInput struct {
	Kind           types.Kind
	TypeID         string // "" matches every type
	Expr           filter.Expr
	IncludeDeleted bool
}

// Find resolves a compiled property filter against the live (is_latest)
// rows of one object kind, applying the ACL gate: the accessible set is
// inlined into the WHERE clause when small, or the query over-fetches
// and filters in memory when the caller's accessible set exceeds
// acl.BulkListThreshold.
func (s *Store) Find(ctx context.Context, caller types.Caller, in FindInput) ([]*types.Row, error) {
	table := tableFor(in.Kind)
	cols := columnsFor(in.Kind)

	compiler := &filter.Compiler{Backend: s.backend, ObjectKind: string(in.Kind), Column: "properties"}
	var frag store.Fragment
	if in.Expr != nil {
		f, err := compiler.Compile(in.Expr)
		if err != nil {
			return nil, err
		}
		frag = f
	}

	clause, err := s.aclEng.Clause(ctx, caller, "acl_id", types.PermRead)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + cols + ` FROM ` + table + ` WHERE is_latest = 1`
	var args []any
	if !in.IncludeDeleted {
		query += ` AND is_deleted = 0`
	}
	if in.TypeID != "" {
		query += ` AND type_id = ?`
		args = append(args, in.TypeID)
	}
	if frag.SQL != "" {
		query += ` AND (` + frag.SQL + `)`
		args = append(args, frag.Args...)
	}
	if !clause.InMemory {
		query += ` AND (` + clause.SQL.SQL + `)`
		args = append(args, clause.SQL.Args...)
	}

	rows, err := queryRows(ctx, s.db(), in.Kind, query, args...)
	if err != nil {
		return nil, err
	}
	if clause.InMemory {
		rows = acl.FilterByACLPermission(rows, func(r *types.Row) *int64 { return r.ACLID }, clause.AccessibleSet)
	}
	return rows, nil
}
