package typeregistry

import (
	"context"
	"testing"

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
	return New(b, nil)
}

func TestCreateGetList(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	person, err := r.Create(ctx, CreateInput{Name: "person", Category: types.CategoryEntity, Creator: "admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	knows, err := r.Create(ctx, CreateInput{Name: "knows", Category: types.CategoryLink, Creator: "admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.Get(ctx, person.ID)
	if err != nil || got.Name != "person" {
		t.Fatalf("Get: %v %+v", err, got)
	}

	entityTypes, err := r.List(ctx, types.CategoryEntity)
	if err != nil || len(entityTypes) != 1 || entityTypes[0].ID != person.ID {
		t.Fatalf("List entity category: err=%v types=%v", err, entityTypes)
	}

	all, err := r.List(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("List all: err=%v len=%d", err, len(all))
	}
	_ = knows
}

func TestValidateCategoryMismatch(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	person, err := r.Create(ctx, CreateInput{Name: "person", Category: types.CategoryEntity, Creator: "admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Validate(ctx, person.ID, types.KindEntity); err != nil {
		t.Fatalf("expected entity kind to validate against entity category: %v", err)
	}
	if err := r.Validate(ctx, person.ID, types.KindLink); err == nil {
		t.Fatalf("expected link kind to be rejected for an entity-category type")
	}
	if err := r.Validate(ctx, "missing", types.KindEntity); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected not-found error for unknown type, got %v", err)
	}
}

func TestDeleteUnusedTypeThenNotFound(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	person, err := r.Create(ctx, CreateInput{Name: "person", Category: types.CategoryEntity, Creator: "admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Delete(ctx, person.ID); err != nil {
		t.Fatalf("expected delete of unused type to succeed: %v", err)
	}
	if err := r.Delete(ctx, person.ID); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}
