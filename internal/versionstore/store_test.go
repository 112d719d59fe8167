package versionstore

import (
	"context"
	"testing"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/audit"
	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/idgen"
	storesqlite "github.com/graphvault/core/internal/store/sqlite"
	"github.com/graphvault/core/internal/types"
)

type allowAllTypes struct{}

func (allowAllTypes) Validate(ctx context.Context, typeID string, kind types.Kind) error { return nil }

func newTestStore(t *testing.T) (*Store, idgen.FixedClock) {
	t.Helper()
	b, err := storesqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	clock := idgen.FixedClock(1000)
	aclEng := acl.New(b, clock, &cache.Generation{})
	return New(b, aclEng, allowAllTypes{}, clock), clock
}

func TestCreateAndGetLatest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}

	row, err := s.Create(ctx, CreateInput{
		Kind:       types.KindEntity,
		TypeID:     "person",
		Properties: types.Properties{"name": "Alice"},
		Creator:    "alice",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.Version != 1 || row.PreviousVersionID != "" {
		t.Fatalf("unexpected initial version row: %+v", row)
	}

	got, err := s.GetLatest(ctx, owner, types.KindEntity, row.ID)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got.ID != row.ID {
		t.Fatalf("expected same id, got %s vs %s", got.ID, row.ID)
	}

	if _, err := s.GetLatest(ctx, types.Caller{UserID: "mallory"}, types.KindEntity, row.ID); err == nil {
		t.Fatalf("expected non-creator to be denied read")
	}
}

func TestVersionChainLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}

	v1, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"title": "v1"}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	v2, err := s.Update(ctx, owner, UpdateInput{Kind: types.KindEntity, AnyID: v1.ID, Properties: types.Properties{"title": "v2"}, Editor: "alice"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v2.Version != 2 || v2.PreviousVersionID != v1.ID {
		t.Fatalf("unexpected v2 row: %+v", v2)
	}

	v3, err := s.SoftDelete(ctx, owner, types.KindEntity, v2.ID, "alice")
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if !v3.IsDeleted {
		t.Fatalf("expected v3 to be a tombstone")
	}

	if _, err := s.Update(ctx, owner, UpdateInput{Kind: types.KindEntity, AnyID: v3.ID, Properties: types.Properties{"title": "v4"}, Editor: "alice"}); err == nil {
		t.Fatalf("expected update on deleted chain to fail")
	}

	v4, err := s.Restore(ctx, owner, types.KindEntity, v3.ID, "alice")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if v4.IsDeleted {
		t.Fatalf("expected v4 to be restored (not deleted)")
	}

	versions, err := s.ListVersions(ctx, owner, types.KindEntity, v1.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.Version != i+1 {
			t.Fatalf("expected versions in order, got version %d at index %d", v.Version, i)
		}
	}

	history, err := s.HistoryWithDiffs(ctx, owner, types.KindEntity, v1.ID)
	if err != nil {
		t.Fatalf("HistoryWithDiffs: %v", err)
	}
	if history[0].Diff != nil {
		t.Fatalf("expected nil diff for first version")
	}
	if history[1].Diff == nil || history[1].Diff.Changed["title"].New != "v2" {
		t.Fatalf("expected title change recorded in diff 1, got %+v", history[1].Diff)
	}
}

func TestSetAclChangesPermissionsNotProperties(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}
	bob := types.Caller{UserID: "bob"}

	v1, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"k": "v"}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.GetLatest(ctx, bob, types.KindEntity, v1.ID); err == nil {
		t.Fatalf("expected bob to lack access before SetAcl")
	}

	v2, err := s.SetAcl(ctx, owner, types.KindEntity, v1.ID, []types.ACLEntry{
		{PrincipalType: types.PrincipalUser, PrincipalID: "bob", Permission: types.PermRead},
	}, "alice")
	if err != nil {
		t.Fatalf("SetAcl: %v", err)
	}
	if v2.Properties["k"] != "v" {
		t.Fatalf("expected properties unchanged across SetAcl, got %+v", v2.Properties)
	}

	got, err := s.GetLatest(ctx, bob, types.KindEntity, v1.ID)
	if err != nil {
		t.Fatalf("expected bob to gain read access after SetAcl: %v", err)
	}
	if got.ID != v2.ID {
		t.Fatalf("expected bob to see the new version")
	}
}

func TestCreateLinkResolvesEntityEndpoints(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}

	a, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "person", Properties: types.Properties{"name": "A"}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "person", Properties: types.Properties{"name": "B"}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	link, err := s.Create(ctx, CreateInput{
		Kind: types.KindLink, TypeID: "knows", Properties: types.Properties{},
		Creator: "alice", LinkSource: a.ID, LinkTarget: b.ID,
	})
	if err != nil {
		t.Fatalf("Create link: %v", err)
	}
	if link.SourceEntityID != a.ID || link.TargetEntityID != b.ID {
		t.Fatalf("expected link endpoints to resolve to entity ids, got %+v", link)
	}

	got, err := s.GetLatest(ctx, owner, types.KindLink, link.ID)
	if err != nil {
		t.Fatalf("GetLatest link: %v", err)
	}
	if got.SourceEntityID != a.ID {
		t.Fatalf("expected persisted source entity id, got %s", got.SourceEntityID)
	}
}

func TestGetVersionReturnsHistoricalRowRegardlessOfLatest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}

	v1, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"n": float64(1)}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, owner, UpdateInput{Kind: types.KindEntity, AnyID: v1.ID, Properties: types.Properties{"n": float64(2)}, Editor: "alice"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	old, err := s.GetVersion(ctx, owner, types.KindEntity, v1.ID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if old.Version != 1 || old.Properties["n"] != float64(1) {
		t.Fatalf("expected to retrieve the original version unchanged, got %+v", old)
	}
}

type recordingRecorder struct {
	events []string
}

func (r *recordingRecorder) Record(ctx context.Context, eventKind, targetID, actorID string, payload map[string]any) {
	r.events = append(r.events, eventKind)
}

func TestAuditSinkRecordsMutations(t *testing.T) {
	s, _ := newTestStore(t)
	rec := &recordingRecorder{}
	s.WithAudit(rec)
	ctx := context.Background()
	owner := types.Caller{UserID: "alice"}

	v1, err := s.Create(ctx, CreateInput{Kind: types.KindEntity, TypeID: "doc", Properties: types.Properties{"k": "v"}, Creator: "alice"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Update(ctx, owner, UpdateInput{Kind: types.KindEntity, AnyID: v1.ID, Properties: types.Properties{"k": "v2"}, Editor: "alice"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := []string{"entity.create", "entity.update"}
	if len(rec.events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, rec.events)
		}
	}
}

func TestWithAuditIgnoresNil(t *testing.T) {
	s, _ := newTestStore(t)
	s.WithAudit(nil)
	if _, ok := s.audit.(audit.NoOp); !ok {
		t.Fatalf("expected default audit sink to remain NoOp, got %T", s.audit)
	}
}
