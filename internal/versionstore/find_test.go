package versionstore

import (
	"context"
	"testing"

	"github.com/graphvault/core/internal/filter"
	"github.com/graphvault/core/internal/types"
)

func TestFindFiltersByPropertyAndACL(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	alice := types.Caller{UserID: "alice"}
	bob := types.Caller{UserID: "bob"}

	pub, err := s.Create(ctx, CreateInput{
		Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"status": "open"},
		Creator: "alice", ACL: ACLSpec{Provided: true, Entries: []types.ACLEntry{
			{PrincipalType: types.PrincipalUser, PrincipalID: "alice", Permission: types.PermWrite},
			{PrincipalType: types.PrincipalUser, PrincipalID: "bob", Permission: types.PermRead},
		}},
	})
	if err != nil {
		t.Fatalf("create pub: %v", err)
	}
	_, err = s.Create(ctx, CreateInput{
		Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"status": "open"}, Creator: "alice",
	})
	if err != nil {
		t.Fatalf("create private: %v", err)
	}
	_, err = s.Create(ctx, CreateInput{
		Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"status": "closed"}, Creator: "alice",
		ACL: ACLSpec{Provided: true, Entries: []types.ACLEntry{
			{PrincipalType: types.PrincipalUser, PrincipalID: "alice", Permission: types.PermWrite},
			{PrincipalType: types.PrincipalUser, PrincipalID: "bob", Permission: types.PermRead},
		}},
	})
	if err != nil {
		t.Fatalf("create closed: %v", err)
	}

	expr := filter.Leaf{Path: "status", Op: filter.OpEq, Value: "open"}

	aliceRows, err := s.Find(ctx, alice, FindInput{Kind: types.KindEntity, TypeID: "doc", Expr: expr})
	if err != nil {
		t.Fatalf("Find as alice: %v", err)
	}
	if len(aliceRows) != 2 {
		t.Fatalf("expected alice to see both open docs, got %d", len(aliceRows))
	}

	bobRows, err := s.Find(ctx, bob, FindInput{Kind: types.KindEntity, TypeID: "doc", Expr: expr})
	if err != nil {
		t.Fatalf("Find as bob: %v", err)
	}
	if len(bobRows) != 1 || bobRows[0].ID != pub.ID {
		t.Fatalf("expected bob to see only the shared open doc, got %+v", bobRows)
	}
}
