// Package groupregistry implements group CRUD and membership management,
// sharing the cache.Generation counter with internal/acl so every
// membership write invalidates the ACL engine's effective-group cache.
// Cycle detection in AddMember is a depth-bounded, visited-set graph walk
// over the group-containment graph.
package groupregistry

import (
	"context"
	"database/sql"

	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// maxCycleCheckDepth bounds the reachability walk AddMember performs
// before accepting a group-in-group edge, matching the effective-group
// expansion depth bound the ACL engine uses.
const maxCycleCheckDepth = 10

// Registry is the group/membership store.
type Registry struct {
	backend    store.Backend
	clock      idgen.Clock
	generation *cache.Generation
}

// New constructs a Registry. generation must be the same *cache.Generation
// passed to acl.New so membership changes invalidate cached group
// resolutions.
func New(backend store.Backend, clock idgen.Clock, generation *cache.Generation) *Registry {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &Registry{backend: backend, clock: clock, generation: generation}
}

// Create registers a new group.
func (r *Registry) Create(ctx context.Context, name, description, creator string) (*types.Group, error) {
	g := &types.Group{
		ID:          idgen.New(),
		Name:        name,
		Description: description,
		CreatedAt:   r.clock.Now(),
		CreatedBy:   creator,
	}
	_, err := r.backend.DB().ExecContext(ctx, `
		INSERT INTO groups (id, name, description, created_at, created_by) VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Name, g.Description, g.CreatedAt, g.CreatedBy)
	if err != nil {
		return nil, coreerr.Internal(err, "insert group %s", name)
	}
	return g, nil
}

// Get fetches a group by id.
func (r *Registry) Get(ctx context.Context, id string) (*types.Group, error) {
	row := r.backend.DB().QueryRowContext(ctx, `
		SELECT id, name, description, created_at, created_by FROM groups WHERE id = ?
	`, id)
	g := &types.Group{}
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, coreerr.NotFound("group %s not found", id)
	}
	if err != nil {
		return nil, coreerr.Internal(err, "scan group %s", id)
	}
	return g, nil
}

// List returns every group.
func (r *Registry) List(ctx context.Context) ([]*types.Group, error) {
	rows, err := r.backend.DB().QueryContext(ctx, `
		SELECT id, name, description, created_at, created_by FROM groups ORDER BY name
	`)
	if err != nil {
		return nil, coreerr.Internal(err, "query groups")
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Group
	for rows.Next() {
		g := &types.Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.CreatedBy); err != nil {
			return nil, coreerr.Internal(err, "scan group row")
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate groups")
	}
	return out, nil
}

// Delete removes a group, refusing if it still has members, is itself a
// member of another group, or appears as a principal in any ACL entry.
func (r *Registry) Delete(ctx context.Context, id string) error {
	var memberCount, membershipCount, aclCount int64
	if err := r.backend.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = ?`, id).Scan(&memberCount); err != nil {
		return coreerr.Internal(err, "count members of %s", id)
	}
	if err := r.backend.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM group_members WHERE member_type = ? AND member_id = ?`, types.PrincipalGroup, id).Scan(&membershipCount); err != nil {
		return coreerr.Internal(err, "count memberships of %s", id)
	}
	if memberCount > 0 || membershipCount > 0 {
		return coreerr.Conflict(coreerr.CodeGroupNotEmpty, "group %s still has members or memberships", id)
	}
	if err := r.backend.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM acl_entries WHERE principal_type = ? AND principal_id = ?`, types.PrincipalGroup, id).Scan(&aclCount); err != nil {
		return coreerr.Internal(err, "count acl entries referencing group %s", id)
	}
	if aclCount > 0 {
		return coreerr.Conflict(coreerr.CodeGroupInUse, "group %s is referenced by %d acl entries", id, aclCount)
	}

	res, err := r.backend.DB().ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return coreerr.Internal(err, "delete group %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coreerr.NotFound("group %s not found", id)
	}
	return nil
}

// AddMember adds a user or group to groupID, rejecting an edge that
// would create a containment cycle via a depth-bounded reachability walk.
func (r *Registry) AddMember(ctx context.Context, groupID string, memberType types.PrincipalType, memberID, actor string) error {
	if memberType == types.PrincipalGroup {
		if memberID == groupID {
			return coreerr.Conflict(coreerr.CodeCycleDetected, "group %s cannot contain itself", groupID)
		}
		reachable, err := r.reachable(ctx, groupID, memberID, maxCycleCheckDepth)
		if err != nil {
			return err
		}
		if reachable {
			return coreerr.Conflict(coreerr.CodeCycleDetected, "adding %s to %s would create a membership cycle", memberID, groupID)
		}
	}

	insertSQL := `INSERT OR IGNORE INTO group_members (group_id, member_type, member_id, created_at, created_by) VALUES (?, ?, ?, ?, ?)`
	if r.backend.Dialect() == "mysql" {
		insertSQL = `INSERT IGNORE INTO group_members (group_id, member_type, member_id, created_at, created_by) VALUES (?, ?, ?, ?, ?)`
	}
	_, err := r.backend.DB().ExecContext(ctx, insertSQL, groupID, memberType, memberID, r.clock.Now(), actor)
	if err != nil {
		return coreerr.Internal(err, "add member %s to group %s", memberID, groupID)
	}
	r.bump()
	return nil
}

// reachable reports whether target is reachable from start by following
// group-containment edges forward (start's groups, their groups, ...),
// bounded by maxDepth. Adding memberID->groupID would close a cycle
// exactly when memberID is reachable from groupID this way, since that
// means memberID already (transitively) contains groupID.
func (r *Registry) reachable(ctx context.Context, start, target string, maxDepth int) (bool, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		rows, err := r.backend.DB().QueryContext(ctx, `
			SELECT group_id FROM group_members WHERE member_type = ? AND member_id IN (`+placeholders(len(frontier))+`)
		`, append([]any{types.PrincipalGroup}, toAny(frontier)...)...)
		if err != nil {
			return false, coreerr.Internal(err, "query group_members for cycle check")
		}

		var next []string
		for rows.Next() {
			var parent string
			if err := rows.Scan(&parent); err != nil {
				_ = rows.Close()
				return false, coreerr.Internal(err, "scan group_members for cycle check")
			}
			if parent == target {
				_ = rows.Close()
				return true, nil
			}
			if !visited[parent] {
				visited[parent] = true
				next = append(next, parent)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return false, coreerr.Internal(err, "iterate group_members for cycle check")
		}
		_ = rows.Close()
		frontier = next
	}
	return false, nil
}

// RemoveMember removes a user or group from groupID.
func (r *Registry) RemoveMember(ctx context.Context, groupID string, memberType types.PrincipalType, memberID string) error {
	res, err := r.backend.DB().ExecContext(ctx, `
		DELETE FROM group_members WHERE group_id = ? AND member_type = ? AND member_id = ?
	`, groupID, memberType, memberID)
	if err != nil {
		return coreerr.Internal(err, "remove member %s from group %s", memberID, groupID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coreerr.NotFound("membership of %s in group %s not found", memberID, groupID)
	}
	r.bump()
	return nil
}

// DirectMembers lists groupID's immediate members, without expanding
// nested groups.
func (r *Registry) DirectMembers(ctx context.Context, groupID string) ([]types.GroupMember, error) {
	rows, err := r.backend.DB().QueryContext(ctx, `
		SELECT group_id, member_type, member_id, created_at, created_by FROM group_members
		WHERE group_id = ? ORDER BY member_type, member_id
	`, groupID)
	if err != nil {
		return nil, coreerr.Internal(err, "query direct members of %s", groupID)
	}
	defer func() { _ = rows.Close() }()

	var out []types.GroupMember
	for rows.Next() {
		var m types.GroupMember
		if err := rows.Scan(&m.GroupID, &m.MemberType, &m.MemberID, &m.CreatedAt, &m.CreatedBy); err != nil {
			return nil, coreerr.Internal(err, "scan group member")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate group members")
	}
	return out, nil
}

// GroupsContainingUser lists every group (direct or transitive) that
// contains userID, by the same forward BFS AddMember's cycle check uses.
func (r *Registry) GroupsContainingUser(ctx context.Context, userID string) ([]*types.Group, error) {
	visited := map[string]bool{}
	frontier := []string{userID}
	principalType := types.PrincipalUser

	for depth := 0; depth < maxCycleCheckDepth && len(frontier) > 0; depth++ {
		rows, err := r.backend.DB().QueryContext(ctx, `
			SELECT group_id FROM group_members WHERE member_type = ? AND member_id IN (`+placeholders(len(frontier))+`)
		`, append([]any{principalType}, toAny(frontier)...)...)
		if err != nil {
			return nil, coreerr.Internal(err, "query groups containing %s", userID)
		}

		var next []string
		for rows.Next() {
			var groupID string
			if err := rows.Scan(&groupID); err != nil {
				_ = rows.Close()
				return nil, coreerr.Internal(err, "scan group id")
			}
			if !visited[groupID] {
				visited[groupID] = true
				next = append(next, groupID)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, coreerr.Internal(err, "iterate group_members")
		}
		_ = rows.Close()
		frontier = next
		principalType = types.PrincipalGroup
	}

	out := make([]*types.Group, 0, len(visited))
	for id := range visited {
		g, err := r.Get(ctx, id)
		if err != nil {
			continue // group deleted between membership scan and fetch; skip rather than fail the whole list
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *Registry) bump() {
	if r.generation != nil {
		r.generation.Bump()
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	s := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			s = append(s, ',')
		}
		s = append(s, '?')
	}
	return string(s)
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
