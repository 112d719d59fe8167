// Package graph implements neighbor lookup, bounded breadth-first
// traversal, and shortest-path search over the live (is_latest) entity/
// link graph, with every visited link and entity gated by the caller's
// read permission. The BFS frontier expansion mirrors internal/acl's
// effective-group resolution, generalized from the group-containment
// graph to the entity/link graph.
package graph

import (
	"context"
	"database/sql"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/types"
)

// Direction selects which links a traversal step follows.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// MaxBFSDepth bounds BFS's expansion, matching the depth bound the ACL
// engine applies to effective-group resolution.
const MaxBFSDepth = 10

// MaxBFSVisited caps the number of distinct entities a single bounded BFS
// may visit, so an adversarially dense graph can't turn a bounded-depth
// request into an unbounded-size response.
const MaxBFSVisited = 10000

// Traverser is the graph traversal engine.
type Traverser struct {
	backend store.Backend
	aclEng  *acl.Engine
}

// New constructs a Traverser.
func New(backend store.Backend, aclEng *acl.Engine) *Traverser {
	return &Traverser{backend: backend, aclEng: aclEng}
}

// Filter narrows Neighbors/BFS traversal to certain link/entity types and
// optionally lets soft-deleted rows through. The zero value traverses
// every type and excludes deleted rows.
type Filter struct {
	LinkTypeIDs    []string
	EntityTypeIDs  []string
	IncludeDeleted bool
}

// Neighbors returns the entities reachable from entityID by one link hop
// in the requested direction, each paired with the connecting link. Only
// links and entities the caller may read are returned.
func (t *Traverser) Neighbors(ctx context.Context, caller types.Caller, entityID string, dir Direction, filter Filter) ([]types.Neighbor, error) {
	links, err := t.adjacentLinks(ctx, entityID, dir, filter)
	if err != nil {
		return nil, err
	}

	var out []types.Neighbor
	for _, l := range links {
		ok, err := t.aclEng.HasPermission(ctx, caller, l.ACLID, types.PermRead)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		outbound := l.SourceEntityID == entityID
		peerID := l.TargetEntityID
		if !outbound {
			peerID = l.SourceEntityID
		}
		peer, err := t.loadLatestEntity(ctx, peerID, filter.EntityTypeIDs, filter.IncludeDeleted)
		if err != nil {
			return nil, err
		}
		if peer == nil {
			continue // endpoint chain deleted/pruned out from under a stale link row
		}
		peerOK, err := t.aclEng.HasPermission(ctx, caller, peer.ACLID, types.PermRead)
		if err != nil {
			return nil, err
		}
		if !peerOK {
			continue
		}
		out = append(out, types.Neighbor{Entity: peer, Link: l, Outbound: outbound})
	}
	return out, nil
}

// BFS runs a bounded breadth-first traversal from startID out to
// maxDepth hops (clamped to MaxBFSDepth), gated by the caller's read
// permission at every hop. When returnPaths is set, every distinct path
// reaching a node is recorded; otherwise only the first (shortest) path
// found is kept.
func (t *Traverser) BFS(ctx context.Context, caller types.Caller, startID string, dir Direction, maxDepth int, returnPaths bool, filter Filter) ([]types.VisitedEntity, error) {
	if maxDepth > MaxBFSDepth || maxDepth < 0 {
		maxDepth = MaxBFSDepth
	}

	start, err := t.loadLatestEntity(ctx, startID, filter.EntityTypeIDs, filter.IncludeDeleted)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, coreerr.NotFound("entity %s not found", startID)
	}
	if ok, err := t.aclEng.HasPermission(ctx, caller, start.ACLID, types.PermRead); err != nil {
		return nil, err
	} else if !ok {
		return nil, coreerr.Forbidden(coreerr.CodeNoWrite, "caller lacks read permission on %s", startID)
	}

	visitedOrder := []string{startID}
	result := map[string]*types.VisitedEntity{
		startID: {Entity: start, Depth: 0, Paths: [][]types.PathStep{{{EntityID: startID}}}},
	}
	frontier := []string{startID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if len(visitedOrder) >= MaxBFSVisited {
				break
			}
			neighbors, err := t.Neighbors(ctx, caller, id, dir, filter)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				linkID := n.Link.ID
				step := types.PathStep{EntityID: n.Entity.ID, LinkID: linkID}

				existing, seen := result[n.Entity.ID]
				if !seen {
					paths := extendPaths(result[id].Paths, step)
					result[n.Entity.ID] = &types.VisitedEntity{Entity: n.Entity, Depth: depth, Paths: paths}
					visitedOrder = append(visitedOrder, n.Entity.ID)
					next = append(next, n.Entity.ID)
					continue
				}
				if returnPaths {
					existing.Paths = append(existing.Paths, extendPaths(result[id].Paths, step)...)
				}
			}
			if len(visitedOrder) >= MaxBFSVisited {
				break
			}
		}
		frontier = next
	}

	out := make([]types.VisitedEntity, len(visitedOrder))
	for i, id := range visitedOrder {
		out[i] = *result[id]
	}
	return out, nil
}

// ShortestPathOptions narrows ShortestPath's search: TypeID restricts
// traversal to links of one type (empty means any type), IncludeDeleted
// lets soft-deleted links/entities through, and MaxDepth overrides
// MaxBFSDepth when in [1,10].
type ShortestPathOptions struct {
	TypeID         string
	IncludeDeleted bool
	MaxDepth       int
}

// ShortestPath runs a BFS over outbound links from fromID to toID,
// breaking ties between equally-short paths by created_at DESC then id
// DESC at each hop (the most recently created link wins), and returning
// nil, nil when no path exists within the depth bound.
func (t *Traverser) ShortestPath(ctx context.Context, caller types.Caller, fromID, toID string, opts ShortestPathOptions) ([]types.PathStep, error) {
	if fromID == toID {
		return []types.PathStep{{EntityID: fromID}}, nil
	}

	maxDepth := MaxBFSDepth
	if opts.MaxDepth >= 1 && opts.MaxDepth <= MaxBFSDepth {
		maxDepth = opts.MaxDepth
	}
	filter := Filter{IncludeDeleted: opts.IncludeDeleted}
	if opts.TypeID != "" {
		filter.LinkTypeIDs = []string{opts.TypeID}
	}

	type queueEntry struct {
		id   string
		path []types.PathStep
	}
	visited := map[string]bool{fromID: true}
	queue := []queueEntry{{id: fromID, path: []types.PathStep{{EntityID: fromID}}}}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []queueEntry
		for _, entry := range queue {
			neighbors, err := t.Neighbors(ctx, caller, entry.id, DirectionOut, filter)
			if err != nil {
				return nil, err
			}
			sortNeighborsForTieBreak(neighbors)

			for _, n := range neighbors {
				if visited[n.Entity.ID] {
					continue
				}
				visited[n.Entity.ID] = true
				path := append(append([]types.PathStep{}, entry.path...), types.PathStep{EntityID: n.Entity.ID, LinkID: n.Link.ID})
				if n.Entity.ID == toID {
					return path, nil
				}
				nextQueue = append(nextQueue, queueEntry{id: n.Entity.ID, path: path})
			}
		}
		queue = nextQueue
	}
	return nil, nil // no path found within the depth bound
}

func sortNeighborsForTieBreak(neighbors []types.Neighbor) {
	for i := 1; i < len(neighbors); i++ {
		for j := i; j > 0; j-- {
			a, b := neighbors[j-1].Link, neighbors[j].Link
			if less(a, b) {
				neighbors[j-1], neighbors[j] = neighbors[j], neighbors[j-1]
			} else {
				break
			}
		}
	}
}

// less reports whether link a should be tried after link b: shortest-path
// ties break by created_at DESC, id DESC, so less is true when a has the
// smaller created_at (or, on equal created_at, the smaller id).
func less(a, b *types.Row) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

func extendPaths(parents [][]types.PathStep, step types.PathStep) [][]types.PathStep {
	out := make([][]types.PathStep, len(parents))
	for i, p := range parents {
		extended := make([]types.PathStep, len(p)+1)
		copy(extended, p)
		extended[len(p)] = step
		out[i] = extended
	}
	return out
}

func (t *Traverser) adjacentLinks(ctx context.Context, entityID string, dir Direction, filter Filter) ([]*types.Row, error) {
	cols := `id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id, source_entity_id, target_entity_id`
	var where string
	switch dir {
	case DirectionOut:
		where = `source_entity_id = ?`
	case DirectionIn:
		where = `target_entity_id = ?`
	default:
		where = `source_entity_id = ? OR target_entity_id = ?`
	}

	query := `SELECT ` + cols + ` FROM links WHERE is_latest = 1 AND (` + where + `)`
	args := []any{entityID}
	if dir == DirectionBoth {
		args = append(args, entityID)
	}
	if !filter.IncludeDeleted {
		query += ` AND is_deleted = 0`
	}
	if len(filter.LinkTypeIDs) > 0 {
		query += ` AND type_id IN (` + placeholders(len(filter.LinkTypeIDs)) + `)`
		args = append(args, toAny(filter.LinkTypeIDs)...)
	}

	rows, err := t.backend.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, coreerr.Internal(err, "query adjacent links for %s", entityID)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Row
	for rows.Next() {
		r, err := scanLinkRow(rows)
		if err != nil {
			return nil, coreerr.Internal(err, "scan link row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Internal(err, "iterate adjacent links")
	}
	return out, nil
}

func (t *Traverser) loadLatestEntity(ctx context.Context, entityID string, typeIDs []string, includeDeleted bool) (*types.Row, error) {
	cols := `id, type_id, properties, version, previous_version_id, created_at, created_by, is_deleted, is_latest, acl_id`
	query := `SELECT ` + cols + ` FROM entities WHERE id = ? AND is_latest = 1`
	args := []any{entityID}
	if len(typeIDs) > 0 {
		query += ` AND type_id IN (` + placeholders(len(typeIDs)) + `)`
		args = append(args, toAny(typeIDs)...)
	}
	row := t.backend.DB().QueryRowContext(ctx, query, args...)
	r, err := scanEntityRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, coreerr.Internal(err, "scan entity %s", entityID)
	}
	if r.IsDeleted && !includeDeleted {
		return nil, nil
	}
	return r, nil
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
