package dbconfig

import (
	"context"
	"testing"

	storesqlite "github.com/graphvault/core/internal/store/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	b, err := storesqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return New(b)
}

func TestSetGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if v, err := s.Get(ctx, "acl_bulk_threshold"); err != nil || v != "" {
		t.Fatalf("expected empty value for unset key, got %q, err %v", v, err)
	}

	if err := s.Set(ctx, "acl_bulk_threshold", "500"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "acl_bulk_threshold")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "500" {
		t.Fatalf("expected 500, got %q", v)
	}

	if err := s.Set(ctx, "acl_bulk_threshold", "1000"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, err = s.Get(ctx, "acl_bulk_threshold")
	if err != nil || v != "1000" {
		t.Fatalf("expected overwritten value 1000, got %q, err %v", v, err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if all["acl_bulk_threshold"] != "1000" {
		t.Fatalf("expected GetAll to include acl_bulk_threshold=1000, got %+v", all)
	}

	if err := s.Delete(ctx, "acl_bulk_threshold"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, err := s.Get(ctx, "acl_bulk_threshold"); err != nil || v != "" {
		t.Fatalf("expected empty value after delete, got %q, err %v", v, err)
	}
}
