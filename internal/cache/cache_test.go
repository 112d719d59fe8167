package cache

import (
	"testing"
	"time"

	"github.com/graphvault/core/internal/idgen"
)

func TestTTLCacheExpiry(t *testing.T) {
	clock := idgen.FixedClock(1000)
	c := New[string, int](10, 5*time.Second, clock)
	c.Put("a", 1)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}

	// Simulate the clock advancing past the TTL by swapping the clock.
	c.clock = idgen.FixedClock(1006)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected cache entry to have expired")
	}
}

func TestTTLCacheDeleteAndPurge(t *testing.T) {
	c := New[string, int](10, time.Minute, idgen.FixedClock(0))
	c.Put("a", 1)
	c.Put("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to be deleted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatalf("expected b to remain")
	}
	c.Purge()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected cache to be empty after purge")
	}
}

func TestGenerationBump(t *testing.T) {
	var g Generation
	if g.Value() != 0 {
		t.Fatalf("expected initial generation 0")
	}
	if g.Bump() != 1 {
		t.Fatalf("expected first bump to return 1")
	}
	if g.Value() != 1 {
		t.Fatalf("expected generation 1 after bump")
	}
}
