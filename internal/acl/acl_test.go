package acl

import (
	"context"
	"database/sql"
	"testing"

	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/idgen"
	storesqlite "github.com/graphvault/core/internal/store/sqlite"
	"github.com/graphvault/core/internal/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	b, err := storesqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return New(b, idgen.SystemClock{}, &cache.Generation{})
}

func TestCanonicalizeEmptyIsPublic(t *testing.T) {
	canon, hash, public := Canonicalize(nil)
	if !public || canon != nil || hash != "" {
		t.Fatalf("expected public sentinel, got canon=%v hash=%q public=%v", canon, hash, public)
	}
}

func TestCanonicalizeOrderIndependent(t *testing.T) {
	a := []types.ACLEntry{
		{PrincipalType: types.PrincipalUser, PrincipalID: "u1", Permission: types.PermRead},
		{PrincipalType: types.PrincipalUser, PrincipalID: "u2", Permission: types.PermWrite},
	}
	b := []types.ACLEntry{a[1], a[0]}

	_, h1, _ := Canonicalize(a)
	_, h2, _ := Canonicalize(b)
	if h1 != h2 {
		t.Fatalf("expected identical hashes for reordered entries, got %q vs %q", h1, h2)
	}
}

func TestCanonicalizeDedup(t *testing.T) {
	entries := []types.ACLEntry{
		{PrincipalType: types.PrincipalUser, PrincipalID: "u1", Permission: types.PermRead},
		{PrincipalType: types.PrincipalUser, PrincipalID: "u1", Permission: types.PermRead},
	}
	canon, _, public := Canonicalize(entries)
	if public || len(canon) != 1 {
		t.Fatalf("expected deduped single entry, got %v", canon)
	}
}

func TestResolveSpecCreatorInheritance(t *testing.T) {
	// Absent spec => implicit creator write.
	out := ResolveSpec(nil, false, "creator1")
	if len(out) != 1 || out[0].PrincipalID != "creator1" || out[0].Permission != types.PermWrite {
		t.Fatalf("expected sole creator-write entry, got %v", out)
	}

	// Empty spec => public.
	out = ResolveSpec([]types.ACLEntry{}, true, "creator1")
	if out != nil {
		t.Fatalf("expected nil (public) for empty spec, got %v", out)
	}

	// Non-empty spec without creator => creator appended.
	given := []types.ACLEntry{{PrincipalType: types.PrincipalUser, PrincipalID: "u2", Permission: types.PermRead}}
	out = ResolveSpec(given, true, "creator1")
	if len(out) != 2 {
		t.Fatalf("expected creator write appended, got %v", out)
	}
}

func TestGetOrCreateACLInterning(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	entries1 := []types.ACLEntry{
		{PrincipalType: types.PrincipalUser, PrincipalID: "u1", Permission: types.PermRead},
		{PrincipalType: types.PrincipalUser, PrincipalID: "u2", Permission: types.PermWrite},
	}
	entries2 := []types.ACLEntry{entries1[1], entries1[0]} // reordered

	id1, err := e.GetOrCreateACL(ctx, entries1)
	if err != nil {
		t.Fatalf("GetOrCreateACL: %v", err)
	}
	id2, err := e.GetOrCreateACL(ctx, entries2)
	if err != nil {
		t.Fatalf("GetOrCreateACL: %v", err)
	}
	if id1 == nil || id2 == nil || *id1 != *id2 {
		t.Fatalf("expected interned ids to match, got %v vs %v", id1, id2)
	}

	got, err := e.GetEntries(ctx, id1)
	if err != nil {
		t.Fatalf("GetEntries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestGetOrCreateACLPublicReturnsNil(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.GetOrCreateACL(context.Background(), nil)
	if err != nil || id != nil {
		t.Fatalf("expected nil id for public ACL, got %v err=%v", id, err)
	}
}

func TestHasPermissionPublicResource(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	ok, err := e.HasPermission(ctx, types.Caller{}, nil, types.PermRead)
	if err != nil || !ok {
		t.Fatalf("expected anonymous read of public resource to succeed")
	}
	ok, err = e.HasPermission(ctx, types.Caller{}, nil, types.PermWrite)
	if err != nil || ok {
		t.Fatalf("expected anonymous write to be denied")
	}
}

func TestHasPermissionCreatorWriteInheritance(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	aclID, err := e.GetOrCreateACL(ctx, ResolveSpec(nil, false, "creator1"))
	if err != nil {
		t.Fatalf("GetOrCreateACL: %v", err)
	}

	ok, err := e.HasPermission(ctx, types.Caller{UserID: "creator1"}, aclID, types.PermWrite)
	if err != nil || !ok {
		t.Fatalf("expected creator to have write, err=%v ok=%v", err, ok)
	}

	ok, err = e.HasPermission(ctx, types.Caller{UserID: "other"}, aclID, types.PermRead)
	if err != nil || ok {
		t.Fatalf("expected non-creator to lack read, err=%v ok=%v", err, ok)
	}
}

func TestWriteImpliesRead(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	aclID, err := e.GetOrCreateACL(ctx, []types.ACLEntry{
		{PrincipalType: types.PrincipalUser, PrincipalID: "u1", Permission: types.PermWrite},
	})
	if err != nil {
		t.Fatalf("GetOrCreateACL: %v", err)
	}

	okWrite, _ := e.HasPermission(ctx, types.Caller{UserID: "u1"}, aclID, types.PermWrite)
	okRead, _ := e.HasPermission(ctx, types.Caller{UserID: "u1"}, aclID, types.PermRead)
	if !okWrite || !okRead {
		t.Fatalf("write permission should imply read: write=%v read=%v", okWrite, okRead)
	}
}

func TestGroupTransitiveAccess(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	db := e.backend.DB()

	now := idgen.SystemClock{}.Now()
	mustExec(t, db, `INSERT INTO groups (id, name, created_at, created_by) VALUES (?, ?, ?, ?)`, "g1", "G1", now, "admin")
	mustExec(t, db, `INSERT INTO groups (id, name, created_at, created_by) VALUES (?, ?, ?, ?)`, "g2", "G2", now, "admin")
	mustExec(t, db, `INSERT INTO group_members (group_id, member_type, member_id, created_at, created_by) VALUES (?, ?, ?, ?, ?)`, "g1", types.PrincipalGroup, "g2", now, "admin")
	mustExec(t, db, `INSERT INTO group_members (group_id, member_type, member_id, created_at, created_by) VALUES (?, ?, ?, ?, ?)`, "g2", types.PrincipalUser, "u1", now, "admin")

	aclID, err := e.GetOrCreateACL(ctx, []types.ACLEntry{
		{PrincipalType: types.PrincipalGroup, PrincipalID: "g1", Permission: types.PermRead},
	})
	if err != nil {
		t.Fatalf("GetOrCreateACL: %v", err)
	}

	ok, err := e.HasPermission(ctx, types.Caller{UserID: "u1"}, aclID, types.PermRead)
	if err != nil || !ok {
		t.Fatalf("expected transitive group membership to grant read, err=%v ok=%v", err, ok)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
