package versionstore

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/types"
)

// maxMutateRetries bounds the concurrent-modification retry loop: each
// retry re-reads the chain's current latest and replays the caller's
// change against it, so a transient loser of the flip race simply tries
// again against the now-current row.
const maxMutateRetries = 5

// GetLatest resolves anyID to its chain's current version, gated by the
// caller's read permission.
func (s *Store) GetLatest(ctx context.Context, caller types.Caller, kind types.Kind, anyID string) (*types.Row, error) {
	row, err := s.resolveLatest(ctx, kind, anyID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, coreerr.NotFound("%s %s not found", kind, anyID)
	}
	return s.authorize(ctx, caller, row, types.PermRead)
}

// GetVersion fetches one immutable version by its own id, regardless of
// whether it is the chain's latest.
func (s *Store) GetVersion(ctx context.Context, caller types.Caller, kind types.Kind, versionID string) (*types.Row, error) {
	if cached, ok := s.objectCache.Get(versionID); ok {
		return s.authorize(ctx, caller, cached, types.PermRead)
	}
	table := tableFor(kind)
	cols := columnsFor(kind)
	row, err := queryRow(ctx, s.db(), kind, `SELECT `+cols+` FROM `+table+` WHERE id = ?`, versionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, coreerr.NotFound("%s version %s not found", kind, versionID)
	}
	s.cachePut(row)
	return s.authorize(ctx, caller, row, types.PermRead)
}

// ListVersions returns every version in a chain, oldest first.
// Authorization is evaluated once against the chain's latest ACL, since
// access control is a property of the chain, not the individual
// historical row.
func (s *Store) ListVersions(ctx context.Context, caller types.Caller, kind types.Kind, anyID string) ([]*types.Row, error) {
	latest, err := s.GetLatest(ctx, caller, kind, anyID)
	if err != nil {
		return nil, err
	}
	return s.walkChainFromRoot(ctx, kind, latest)
}

// HistoryWithDiffs returns every version paired with its diff against
// the preceding version.
func (s *Store) HistoryWithDiffs(ctx context.Context, caller types.Caller, kind types.Kind, anyID string) ([]types.VersionWithDiff, error) {
	versions, err := s.ListVersions(ctx, caller, kind, anyID)
	if err != nil {
		return nil, err
	}
	out := make([]types.VersionWithDiff, len(versions))
	for i, v := range versions {
		vd := types.VersionWithDiff{Row: v}
		if i > 0 {
			d := ComputeDiff(versions[i-1].Properties, v.Properties)
			vd.Diff = &d
		}
		out[i] = vd
	}
	return out, nil
}

// walkChainFromRoot walks previous_version_id backwards from latest to
// the chain's first version, then returns the rows in forward order.
func (s *Store) walkChainFromRoot(ctx context.Context, kind types.Kind, latest *types.Row) ([]*types.Row, error) {
	table := tableFor(kind)
	cols := columnsFor(kind)

	reversed := []*types.Row{latest}
	cur := latest
	seen := map[string]bool{cur.ID: true}
	for cur.PreviousVersionID != "" {
		if seen[cur.PreviousVersionID] {
			return nil, coreerr.Internal(nil, "version chain cycle detected at %s", cur.ID)
		}
		prev, err := queryRow(ctx, s.db(), kind, `SELECT `+cols+` FROM `+table+` WHERE id = ?`, cur.PreviousVersionID)
		if err != nil {
			return nil, err
		}
		if prev == nil {
			break // chain truncated (e.g. by external pruning); stop rather than fail.
		}
		reversed = append(reversed, prev)
		seen[prev.ID] = true
		cur = prev
	}

	out := make([]*types.Row, len(reversed))
	for i, r := range reversed {
		out[len(reversed)-1-i] = r
	}
	return out, nil
}

// UpdateInput carries Update's parameters.
type UpdateInput struct {
	Kind       types.Kind
	AnyID      string
	Properties types.Properties
	Editor     string
}

// Update appends a fresh version with the caller's properties and the
// chain's existing ACL carried over unchanged. Retries on
// concurrent-modification conflicts.
func (s *Store) Update(ctx context.Context, caller types.Caller, in UpdateInput) (*types.Row, error) {
	var result *types.Row
	op := func() error {
		old, err := s.resolveLatest(ctx, in.Kind, in.AnyID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if old == nil {
			return backoff.Permanent(coreerr.NotFound("%s %s not found", in.Kind, in.AnyID))
		}
		if _, err := s.authorize(ctx, caller, old, types.PermWrite); err != nil {
			return backoff.Permanent(err)
		}
		if old.IsDeleted {
			return backoff.Permanent(coreerr.New(coreerr.KindConflict, coreerr.CodeEntityDeleted, "%s %s is deleted and cannot be updated", in.Kind, old.ID))
		}

		next := &types.Row{
			ID:                idgen.New(),
			Kind:              in.Kind,
			TypeID:            old.TypeID,
			Properties:        in.Properties,
			Version:           old.Version + 1,
			PreviousVersionID: old.ID,
			CreatedAt:         s.clock.Now(),
			CreatedBy:         in.Editor,
			IsDeleted:         false,
			ACLID:             old.ACLID,
			SourceEntityID:    old.SourceEntityID,
			TargetEntityID:    old.TargetEntityID,
		}
		if err := s.mutate(ctx, in.Kind, old, next); err != nil {
			return err // retry re-runs op only for a concurrent-modification conflict
		}
		result = next
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, string(in.Kind)+".update", result.ID, in.Editor, map[string]any{"version": result.Version})
	return result, nil
}

// SoftDelete appends a tombstone version with is_deleted=true and
// unchanged properties.
func (s *Store) SoftDelete(ctx context.Context, caller types.Caller, kind types.Kind, anyID, actor string) (*types.Row, error) {
	var result *types.Row
	op := func() error {
		old, err := s.resolveLatest(ctx, kind, anyID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if old == nil {
			return backoff.Permanent(coreerr.NotFound("%s %s not found", kind, anyID))
		}
		if _, err := s.authorize(ctx, caller, old, types.PermWrite); err != nil {
			return backoff.Permanent(err)
		}
		if old.IsDeleted {
			return backoff.Permanent(coreerr.Conflict(coreerr.CodeAlreadyDeleted, "%s %s is already deleted", kind, old.ID))
		}

		next := &types.Row{
			ID:                idgen.New(),
			Kind:              kind,
			TypeID:            old.TypeID,
			Properties:        old.Properties,
			Version:           old.Version + 1,
			PreviousVersionID: old.ID,
			CreatedAt:         s.clock.Now(),
			CreatedBy:         actor,
			IsDeleted:         true,
			ACLID:             old.ACLID,
			SourceEntityID:    old.SourceEntityID,
			TargetEntityID:    old.TargetEntityID,
		}
		if err := s.mutate(ctx, kind, old, next); err != nil {
			return err
		}
		result = next
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, string(kind)+".soft_delete", result.ID, actor, map[string]any{"version": result.Version})
	return result, nil
}

// Restore appends a fresh, un-deleted version atop a tombstoned chain.
func (s *Store) Restore(ctx context.Context, caller types.Caller, kind types.Kind, anyID, actor string) (*types.Row, error) {
	var result *types.Row
	op := func() error {
		old, err := s.resolveLatest(ctx, kind, anyID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if old == nil {
			return backoff.Permanent(coreerr.NotFound("%s %s not found", kind, anyID))
		}
		if _, err := s.authorize(ctx, caller, old, types.PermWrite); err != nil {
			return backoff.Permanent(err)
		}
		if !old.IsDeleted {
			return backoff.Permanent(coreerr.Conflict(coreerr.CodeNotDeleted, "%s %s is not deleted", kind, old.ID))
		}

		next := &types.Row{
			ID:                idgen.New(),
			Kind:              kind,
			TypeID:            old.TypeID,
			Properties:        old.Properties,
			Version:           old.Version + 1,
			PreviousVersionID: old.ID,
			CreatedAt:         s.clock.Now(),
			CreatedBy:         actor,
			IsDeleted:         false,
			ACLID:             old.ACLID,
			SourceEntityID:    old.SourceEntityID,
			TargetEntityID:    old.TargetEntityID,
		}
		if err := s.mutate(ctx, kind, old, next); err != nil {
			return err
		}
		result = next
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, string(kind)+".restore", result.ID, actor, map[string]any{"version": result.Version})
	return result, nil
}

// SetAcl appends a fresh version with unchanged properties and a newly
// resolved ACL — the one mutation allowed to change a chain's ACL.
func (s *Store) SetAcl(ctx context.Context, caller types.Caller, kind types.Kind, anyID string, entries []types.ACLEntry, actor string) (*types.Row, error) {
	var result *types.Row
	op := func() error {
		old, err := s.resolveLatest(ctx, kind, anyID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if old == nil {
			return backoff.Permanent(coreerr.NotFound("%s %s not found", kind, anyID))
		}
		if _, err := s.authorize(ctx, caller, old, types.PermWrite); err != nil {
			return backoff.Permanent(err)
		}
		if old.IsDeleted {
			return backoff.Permanent(coreerr.New(coreerr.KindConflict, coreerr.CodeEntityDeleted, "%s %s is deleted and cannot be re-acled", kind, old.ID))
		}

		resolved := acl.ResolveSpec(entries, true, actor)
		aclID, err := s.aclEng.GetOrCreateACL(ctx, resolved)
		if err != nil {
			return backoff.Permanent(err)
		}

		next := &types.Row{
			ID:                idgen.New(),
			Kind:              kind,
			TypeID:            old.TypeID,
			Properties:        old.Properties,
			Version:           old.Version + 1,
			PreviousVersionID: old.ID,
			CreatedAt:         s.clock.Now(),
			CreatedBy:         actor,
			IsDeleted:         old.IsDeleted,
			ACLID:             aclID,
			SourceEntityID:    old.SourceEntityID,
			TargetEntityID:    old.TargetEntityID,
		}
		if err := s.mutate(ctx, kind, old, next); err != nil {
			return err
		}
		result = next
		return nil
	}

	if err := s.retry(ctx, op); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, string(kind)+".set_acl", result.ID, actor, map[string]any{"version": result.Version})
	return result, nil
}

// authorize checks caller's permission against row's ACL, translating a
// denial into the forbidden/unauthenticated error kinds.
func (s *Store) authorize(ctx context.Context, caller types.Caller, row *types.Row, required types.Permission) (*types.Row, error) {
	ok, err := s.aclEng.HasPermission(ctx, caller, row.ACLID, required)
	if err != nil {
		return nil, err
	}
	if ok {
		return row, nil
	}
	if caller.Anonymous() {
		return nil, coreerr.Unauthenticated("authentication required for %s", row.ID)
	}
	return nil, coreerr.Forbidden(coreerr.CodeNoWrite, "caller lacks %s permission on %s", required, row.ID)
}

// retry runs op with exponential backoff, retrying only the
// concurrent-modification conflict kind, which is transient; every other
// failure is wrapped in backoff.Permanent (if op has not already done so),
// so a single errors.As unwrap here is enough to hand the caller back the
// original *coreerr.Error rather than backoff's wrapper type.
func (s *Store) retry(ctx context.Context, op func() error) error {
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxMutateRetries)
	conflictsOnly := func() error {
		err := op()
		if err == nil || coreerr.HasCode(err, coreerr.CodeConcurrentModification) {
			return err
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}
		return backoff.Permanent(err)
	}
	err := backoff.Retry(conflictsOnly, backoff.WithContext(bo, ctx))
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
