// Package versionstore is the version-chain store: create/update/
// soft-delete/restore for entity and link chains, with ACL carry-over and
// a two-statement flip/insert mutation shape (the old latest row is
// flipped to is_latest=0 and a new row is inserted as the new latest,
// conditioned so a racing writer's flip affects zero rows and must retry).
package versionstore

import (
	"context"
	"time"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/audit"
	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// TypeChecker validates that a type exists and matches the object kind.
// Implemented by internal/typeregistry; kept as a narrow interface here
// to avoid a storage<->registry import cycle.
type TypeChecker interface {
	Validate(ctx context.Context, typeID string, kind types.Kind) error
}

// Store is the version-chain store.
type Store struct {
	backend store.Backend
	aclEng  *acl.Engine
	types   TypeChecker
	clock   idgen.Clock
	audit   audit.Recorder

	objectCache *cache.TTLCache[string, *types.Row]
}

// New constructs a Store. The audit sink defaults to audit.NoOp{}; set
// one with WithAudit.
func New(backend store.Backend, aclEng *acl.Engine, typeChecker TypeChecker, clock idgen.Clock) *Store {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &Store{
		backend:     backend,
		aclEng:      aclEng,
		types:       typeChecker,
		clock:       clock,
		audit:       audit.NoOp{},
		objectCache: cache.New[string, *types.Row](8192, time.Minute, clock),
	}
}

// WithAudit sets the Store's audit sink and returns the Store for
// chaining, e.g. versionstore.New(...).WithAudit(rec).
func (s *Store) WithAudit(rec audit.Recorder) *Store {
	if rec != nil {
		s.audit = rec
	}
	return s
}

// ACLSpec describes a caller-supplied ACL: Provided distinguishes "absent"
// (creator-write inherited) from "explicit empty" (public).
type ACLSpec struct {
	Entries  []types.ACLEntry
	Provided bool
}

// CreateInput carries Create's parameters; LinkSource/LinkTarget are only
// consulted when Kind == types.KindLink.
type CreateInput struct {
	Kind        types.Kind
	TypeID      string
	Properties  types.Properties
	ACL         ACLSpec
	Creator     string
	LinkSource  string
	LinkTarget  string
}

// Create inserts the first version of a new entity or link chain.
func (s *Store) Create(ctx context.Context, in CreateInput) (*types.Row, error) {
	if err := s.types.Validate(ctx, in.TypeID, in.Kind); err != nil {
		return nil, err
	}

	resolvedEntries := acl.ResolveSpec(in.ACL.Entries, in.ACL.Provided, in.Creator)
	aclID, err := s.aclEng.GetOrCreateACL(ctx, resolvedEntries)
	if err != nil {
		return nil, err
	}

	row := &types.Row{
		ID:         idgen.New(),
		Kind:       in.Kind,
		TypeID:     in.TypeID,
		Properties: in.Properties,
		Version:    1,
		CreatedAt:  s.clock.Now(),
		CreatedBy:  in.Creator,
		IsLatest:   true,
		ACLID:      aclID,
	}
	if in.Kind == types.KindLink {
		srcLatest, err := s.resolveLatest(ctx, types.KindEntity, in.LinkSource)
		if err != nil {
			return nil, err
		}
		dstLatest, err := s.resolveLatest(ctx, types.KindEntity, in.LinkTarget)
		if err != nil {
			return nil, err
		}
		if srcLatest == nil {
			return nil, coreerr.NotFound("link source entity %s not found", in.LinkSource)
		}
		if dstLatest == nil {
			return nil, coreerr.NotFound("link target entity %s not found", in.LinkTarget)
		}
		row.SourceEntityID = srcLatest.ID
		row.TargetEntityID = dstLatest.ID
	}

	propsJSON, err := marshalProperties(row.Properties)
	if err != nil {
		return nil, coreerr.Internal(err, "marshal properties")
	}

	table := tableFor(in.Kind)
	if in.Kind == types.KindLink {
		_, err = s.db().ExecContext(ctx, `
			INSERT INTO `+table+` (id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id, source_entity_id, target_entity_id)
			VALUES (?, ?, ?, ?, '', ?, ?, 0, 1, ?, ?, ?)
		`, row.ID, row.TypeID, propsJSON, row.Version, row.CreatedAt, row.CreatedBy, row.ACLID, row.SourceEntityID, row.TargetEntityID)
	} else {
		_, err = s.db().ExecContext(ctx, `
			INSERT INTO `+table+` (id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id)
			VALUES (?, ?, ?, ?, '', ?, ?, 0, 1, ?)
		`, row.ID, row.TypeID, propsJSON, row.Version, row.CreatedAt, row.CreatedBy, row.ACLID)
	}
	if err != nil {
		return nil, coreerr.Internal(err, "insert %s", table)
	}

	s.cachePut(row)
	s.audit.Record(ctx, string(in.Kind)+".create", row.ID, in.Creator, map[string]any{"type_id": row.TypeID, "version": row.Version})
	return row, nil
}

// mutate runs the two-statement flip/insert pattern: the flip UPDATE is
// conditioned on is_latest=1, so a racing writer observes zero rows
// affected and must retry from a fresh GetLatest.
func (s *Store) mutate(ctx context.Context, kind types.Kind, old *types.Row, next *types.Row) error {
	table := tableFor(kind)
	propsJSON, err := marshalProperties(next.Properties)
	if err != nil {
		return coreerr.Internal(err, "marshal properties")
	}

	var insertSQL string
	var insertArgs []any
	if kind == types.KindLink {
		insertSQL = `INSERT INTO ` + table + ` (id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id, source_entity_id, target_entity_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`
		insertArgs = []any{next.ID, next.TypeID, propsJSON, next.Version, next.PreviousVersionID, next.CreatedAt, next.CreatedBy, boolToInt(next.IsDeleted), next.ACLID, next.SourceEntityID, next.TargetEntityID}
	} else {
		insertSQL = `INSERT INTO ` + table + ` (id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`
		insertArgs = []any{next.ID, next.TypeID, propsJSON, next.Version, next.PreviousVersionID, next.CreatedAt, next.CreatedBy, boolToInt(next.IsDeleted), next.ACLID}
	}

	// The flip and the insert run inside one transaction so a crash or
	// error between them can never strand the chain with zero latest
	// rows; the flip's affected-row count is still checked (via the tx)
	// before the insert executes, so a losing racer rolls back cleanly
	// instead of committing a partial mutation.
	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return coreerr.Internal(err, "begin mutate tx for %s", old.ID)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE `+table+` SET is_latest = 0 WHERE id = ? AND is_latest = 1`, old.ID)
	if err != nil {
		return coreerr.Internal(err, "flip latest on %s", old.ID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return coreerr.Internal(err, "read flip rows affected")
	}
	if affected == 0 {
		return coreerr.Conflict(coreerr.CodeConcurrentModification, "concurrent modification of %s", old.ID)
	}

	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return coreerr.Internal(err, "insert new version of %s", old.ID)
	}

	if err := tx.Commit(); err != nil {
		return coreerr.Internal(err, "commit mutate tx for %s", old.ID)
	}

	s.cacheInvalidate(old.ID)
	s.cacheInvalidate(next.PreviousVersionID)
	s.cachePut(next)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
