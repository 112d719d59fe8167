// Package acl implements the normalized, deduplicated access-control
// layer: ACL interning, group-transitive resolution with a cached
// effective-membership set, and two permission-evaluation paths
// (per-object and bulk set-based).
package acl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// BulkListThreshold is the accessible-ACL-id count above which the SQL
// IN-list is abandoned in favor of in-memory post-filtering.
const BulkListThreshold = 1000

// MaxGroupDepth bounds effective-group BFS expansion.
const MaxGroupDepth = 10

// Engine is the ACL subsystem's entry point.
type Engine struct {
	backend    store.Backend
	clock      idgen.Clock
	generation *cache.Generation

	groupCache  *cache.TTLCache[cache.GroupCacheKey, map[string]bool]
	internGroup singleflight.Group
}

// New constructs an Engine. generation is shared with the group registry
// so membership writes can bump it.
func New(backend store.Backend, clock idgen.Clock, generation *cache.Generation) *Engine {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &Engine{
		backend:    backend,
		clock:      clock,
		generation: generation,
		groupCache: cache.New[cache.GroupCacheKey, map[string]bool](4096, 5*time.Minute, clock),
	}
}

// GetOrCreateACL interns the canonical entry set, returning a nil id for
// the public (empty) entry set. Concurrent callers racing on the same
// entry set resolve to the same row: a per-process singleflight collapses
// duplicate inserts, and the database's unique index on hash is the
// ultimate authority if two processes race.
func (e *Engine) GetOrCreateACL(ctx context.Context, entries []types.ACLEntry) (*int64, error) {
	canon, hash, public := Canonicalize(entries)
	if public {
		return nil, nil
	}

	v, err, _ := e.internGroup.Do(hash, func() (any, error) {
		return e.getOrCreateByHash(ctx, hash, canon)
	})
	if err != nil {
		return nil, err
	}
	id := v.(int64)
	return &id, nil
}

func (e *Engine) getOrCreateByHash(ctx context.Context, hash string, canon []types.ACLEntry) (int64, error) {
	var id int64
	row := e.backend.DB().QueryRowContext(ctx, `SELECT id FROM acls WHERE hash = ?`, hash)
	if err := row.Scan(&id); err == nil {
		return id, nil
	}

	tx, err := e.backend.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, coreerr.Internal(err, "begin acl intern transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO acls (hash, created_at) VALUES (?, ?)`, hash, e.clock.Now())
	if err != nil {
		// Unique-index race: another writer won. Fall back to a fresh lookup.
		row := e.backend.DB().QueryRowContext(ctx, `SELECT id FROM acls WHERE hash = ?`, hash)
		if scanErr := row.Scan(&id); scanErr == nil {
			return id, nil
		}
		return 0, coreerr.Internal(err, "insert acl row")
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, coreerr.Internal(err, "read acl id")
	}

	for _, entry := range canon {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO acl_entries (acl_id, principal_type, principal_id, permission) VALUES (?, ?, ?, ?)
		`, id, entry.PrincipalType, entry.PrincipalID, entry.Permission); err != nil {
			return 0, coreerr.Internal(err, "insert acl entry")
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, coreerr.Internal(err, "commit acl intern transaction")
	}
	return id, nil
}

// GetEntries returns the canonical entries of an ACL, or nil for a nil id
// (public). Used by the "get" side of the ACL wire format.
func (e *Engine) GetEntries(ctx context.Context, aclID *int64) ([]types.ACLEntry, error) {
	if aclID == nil {
		return nil, nil
	}
	rows, err := e.backend.DB().QueryContext(ctx, `
		SELECT principal_type, principal_id, permission FROM acl_entries WHERE acl_id = ?
		ORDER BY principal_type, principal_id, permission
	`, *aclID)
	if err != nil {
		return nil, coreerr.Internal(err, "query acl entries")
	}
	defer func() { _ = rows.Close() }()

	var out []types.ACLEntry
	for rows.Next() {
		var e types.ACLEntry
		if err := rows.Scan(&e.PrincipalType, &e.PrincipalID, &e.Permission); err != nil {
			return nil, coreerr.Internal(err, "scan acl entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate acl entries")
	}
	return out, nil
}

// EffectiveGroups returns the breadth-first expansion of a user's direct
// and transitive group memberships, depth-bounded and cached under
// (user, generation, 5m TTL).
func (e *Engine) EffectiveGroups(ctx context.Context, userID string) (map[string]bool, error) {
	gen := int64(0)
	if e.generation != nil {
		gen = e.generation.Value()
	}
	key := cache.GroupCacheKey{UserID: userID, Generation: gen}
	if cached, ok := e.groupCache.Get(key); ok {
		return cached, nil
	}

	groups, err := e.computeEffectiveGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.groupCache.Put(key, groups)
	return groups, nil
}

func (e *Engine) computeEffectiveGroups(ctx context.Context, userID string) (map[string]bool, error) {
	visited := map[string]bool{}
	frontier := []string{userID}
	principalType := types.PrincipalUser

	for depth := 0; depth < MaxGroupDepth && len(frontier) > 0; depth++ {
		rows, err := e.backend.DB().QueryContext(ctx, `
			SELECT group_id FROM group_members WHERE member_type = ? AND member_id IN (`+placeholders(len(frontier))+`)
		`, append([]any{principalType}, toAny(frontier)...)...)
		if err != nil {
			return nil, coreerr.Internal(err, "query group_members")
		}

		var next []string
		for rows.Next() {
			var groupID string
			if err := rows.Scan(&groupID); err != nil {
				_ = rows.Close()
				return nil, coreerr.Internal(err, "scan group_members")
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
	return visited, nil
}

// AccessibleACLIDs returns every ACL id that grants userID at least
// required permission, directly or through effective group membership.
func (e *Engine) AccessibleACLIDs(ctx context.Context, userID string, required types.Permission) (map[int64]bool, error) {
	if userID == "" {
		return map[int64]bool{}, nil
	}
	groups, err := e.EffectiveGroups(ctx, userID)
	if err != nil {
		return nil, err
	}

	perms := UpwardClosure(required)
	permPlaceholders := placeholders(len(perms))

	principalClauses := []string{"(principal_type = ? AND principal_id = ?)"}
	args := []any{types.PrincipalUser, userID}
	for g := range groups {
		principalClauses = append(principalClauses, "(principal_type = ? AND principal_id = ?)")
		args = append(args, types.PrincipalGroup, g)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT acl_id FROM acl_entries
		WHERE permission IN (%s) AND (%s)
	`, permPlaceholders, joinOr(principalClauses))

	fullArgs := append(toAny(perms), args...)
	rows, err := e.backend.DB().QueryContext(ctx, query, fullArgs...)
	if err != nil {
		return nil, coreerr.Internal(err, "query accessible acl ids")
	}
	defer func() { _ = rows.Close() }()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, coreerr.Internal(err, "scan acl id")
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate accessible acl ids")
	}
	return out, nil
}

// HasPermission evaluates one object's permission for caller, including
// the anonymous-caller rule for public (nil-ACL) resources.
func (e *Engine) HasPermission(ctx context.Context, caller types.Caller, aclID *int64, required types.Permission) (bool, error) {
	if aclID == nil {
		// Public resource: readable by everyone; writable by any
		// authenticated caller, never by an anonymous one.
		if required == types.PermRead {
			return true, nil
		}
		return !caller.Anonymous(), nil
	}
	if caller.Anonymous() {
		return false, nil
	}
	if caller.IsAdmin {
		return true, nil
	}
	accessible, err := e.AccessibleACLIDs(ctx, caller.UserID, required)
	if err != nil {
		return false, err
	}
	return accessible[*aclID], nil
}

// BulkClause gates a list query: a SQL fragment when the accessible set
// is small enough to inline, or a signal to post-filter in memory when
// it isn't.
type BulkClause struct {
	SQL          *store.Fragment // nil when InMemory is true
	InMemory     bool
	AccessibleSet map[int64]bool // populated only when InMemory is true
}

// Clause builds a BulkClause over aclColumn for the given caller and
// required permission.
func (e *Engine) Clause(ctx context.Context, caller types.Caller, aclColumn string, required types.Permission) (BulkClause, error) {
	if caller.Anonymous() {
		return BulkClause{SQL: &store.Fragment{SQL: aclColumn + " IS NULL"}}, nil
	}
	if caller.IsAdmin {
		return BulkClause{SQL: &store.Fragment{SQL: "1=1"}}, nil
	}

	accessible, err := e.AccessibleACLIDs(ctx, caller.UserID, required)
	if err != nil {
		return BulkClause{}, err
	}
	if len(accessible) > BulkListThreshold {
		return BulkClause{InMemory: true, AccessibleSet: accessible}, nil
	}

	ids := make([]any, 0, len(accessible))
	for id := range accessible {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return BulkClause{SQL: &store.Fragment{SQL: aclColumn + " IS NULL"}}, nil
	}
	frag := store.Fragment{
		SQL:  fmt.Sprintf("(%s IS NULL OR %s IN (%s))", aclColumn, aclColumn, placeholders(len(ids))),
		Args: ids,
	}
	return BulkClause{SQL: &frag}, nil
}

// FilterByACLPermission applies the in-memory over-fetch-then-filter
// fallback to rows already fetched from the store.
func FilterByACLPermission[T any](rows []T, aclOf func(T) *int64, accessible map[int64]bool) []T {
	out := rows[:0:0]
	for _, r := range rows {
		id := aclOf(r)
		if id == nil || accessible[*id] {
			out = append(out, r)
		}
	}
	return out
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

func joinOr(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " OR " + c
	}
	return out
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
