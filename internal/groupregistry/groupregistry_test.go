package groupregistry

import (
	"context"
	"testing"

	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/coreerr"
	storesqlite "github.com/graphvault/core/internal/store/sqlite"
	"github.com/graphvault/core/internal/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	b, err := storesqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return New(b, nil, &cache.Generation{})
}

func TestCreateAddMemberTransitive(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	g1, err := r.Create(ctx, "G1", "", "admin")
	if err != nil {
		t.Fatalf("Create g1: %v", err)
	}
	g2, err := r.Create(ctx, "G2", "", "admin")
	if err != nil {
		t.Fatalf("Create g2: %v", err)
	}

	if err := r.AddMember(ctx, g1.ID, types.PrincipalGroup, g2.ID, "admin"); err != nil {
		t.Fatalf("AddMember g2 into g1: %v", err)
	}
	if err := r.AddMember(ctx, g2.ID, types.PrincipalUser, "u1", "admin"); err != nil {
		t.Fatalf("AddMember u1 into g2: %v", err)
	}

	groups, err := r.GroupsContainingUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GroupsContainingUser: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected u1 to transitively belong to 2 groups, got %d", len(groups))
	}
}

func TestAddMemberRejectsCycle(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	g1, err := r.Create(ctx, "G1", "", "admin")
	if err != nil {
		t.Fatalf("Create g1: %v", err)
	}
	g2, err := r.Create(ctx, "G2", "", "admin")
	if err != nil {
		t.Fatalf("Create g2: %v", err)
	}

	if err := r.AddMember(ctx, g1.ID, types.PrincipalGroup, g2.ID, "admin"); err != nil {
		t.Fatalf("AddMember g2 into g1: %v", err)
	}
	if err := r.AddMember(ctx, g2.ID, types.PrincipalGroup, g1.ID, "admin"); !coreerr.HasCode(err, coreerr.CodeCycleDetected) {
		t.Fatalf("expected cycle detection error, got %v", err)
	}
	if err := r.AddMember(ctx, g1.ID, types.PrincipalGroup, g1.ID, "admin"); !coreerr.HasCode(err, coreerr.CodeCycleDetected) {
		t.Fatalf("expected self-membership to be rejected, got %v", err)
	}
}

func TestDeleteRefusesNonEmptyGroup(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	g1, err := r.Create(ctx, "G1", "", "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.AddMember(ctx, g1.ID, types.PrincipalUser, "u1", "admin"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := r.Delete(ctx, g1.ID); !coreerr.HasCode(err, coreerr.CodeGroupNotEmpty) {
		t.Fatalf("expected group-not-empty error, got %v", err)
	}
	if err := r.RemoveMember(ctx, g1.ID, types.PrincipalUser, "u1"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if err := r.Delete(ctx, g1.ID); err != nil {
		t.Fatalf("expected delete to succeed once empty: %v", err)
	}
}
