package core

import (
	"context"
	"testing"

	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/types"
	"github.com/graphvault/core/internal/typeregistry"
	"github.com/graphvault/core/internal/versionstore"
)

func TestOpenWiresStoreTypesAndACL(t *testing.T) {
	ctx := context.Background()
	v, err := Open(ctx, SQLiteConfig(":memory:"), idgen.FixedClock(1000))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = v.Close() }()

	personType, err := v.Types.Create(ctx, typeregistry.CreateInput{
		Name: "person", Category: types.CategoryEntity, Creator: "alice",
	})
	if err != nil {
		t.Fatalf("create type: %v", err)
	}

	alice := types.Caller{UserID: "alice"}
	row, err := v.Store.Create(ctx, versionstore.CreateInput{
		Kind: types.KindEntity, TypeID: personType.ID, Properties: types.Properties{"name": "Alice"}, Creator: "alice",
	})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	got, err := v.Store.GetLatest(ctx, alice, types.KindEntity, row.ID)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got.ID != row.ID {
		t.Fatalf("expected to read back the created row, got %+v", got)
	}

	g, err := v.Groups.Create(ctx, "engineers", "eng team", "alice")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if g.Name != "engineers" {
		t.Fatalf("unexpected group: %+v", g)
	}
}
