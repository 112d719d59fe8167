package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/graphvault/core/internal/store"
	storesqlite "github.com/graphvault/core/internal/store/sqlite"
)

func testBackend(t *testing.T) store.Backend {
	t.Helper()
	b, err := storesqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite backend: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestParsePath(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"name", "$.name", false},
		{"a.b.c", "$.a.b.c", false},
		{"tags[0]", "$.tags[0]", false},
		{"a.b[2].c", "$.a.b[2].c", false},
		{"1bad", "", true},
		{"a.b.c.d.e.f.g.h.i.j.k", "", true}, // 11 levels
	}
	for _, tc := range cases {
		got, err := ParsePath(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePath(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePath(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParsePathMaxDepthBoundary(t *testing.T) {
	ten := "a.b.c.d.e.f.g.h.i.j" // exactly 10 segments
	if _, err := ParsePath(ten); err != nil {
		t.Fatalf("10-level path should be accepted: %v", err)
	}
	eleven := ten + ".k"
	if _, err := ParsePath(eleven); err == nil {
		t.Fatalf("11-level path should be rejected")
	}
}

func TestCompileLeafEq(t *testing.T) {
	c := &Compiler{Backend: testBackend(t), ObjectKind: "entity", Column: "properties"}
	frag, err := c.Compile(Leaf{Path: "status", Op: OpEq, Value: "open"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(frag.SQL, "json_extract(properties, '$.status') = ?") {
		t.Fatalf("unexpected SQL: %s", frag.SQL)
	}
	if len(frag.Args) != 1 || frag.Args[0] != "open" {
		t.Fatalf("unexpected args: %v", frag.Args)
	}
}

func TestCompileExistsUsesIsNotNull(t *testing.T) {
	c := &Compiler{Backend: testBackend(t), ObjectKind: "entity", Column: "properties"}
	frag, err := c.Compile(Leaf{Path: "name", Op: OpExists})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.HasSuffix(frag.SQL, "IS NOT NULL") {
		t.Fatalf("unexpected SQL: %s", frag.SQL)
	}
}

func TestCompileAndOr(t *testing.T) {
	c := &Compiler{Backend: testBackend(t), ObjectKind: "entity", Column: "properties"}
	expr := And{Children: []Expr{
		Leaf{Path: "status", Op: OpEq, Value: "open"},
		Or{Children: []Expr{
			Leaf{Path: "priority", Op: OpEq, Value: "high"},
			Leaf{Path: "priority", Op: OpEq, Value: "critical"},
		}},
	}}
	frag, err := c.Compile(expr)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(frag.Args) != 3 {
		t.Fatalf("expected 3 bound args, got %d (%v)", len(frag.Args), frag.Args)
	}
}

func TestCompileFilterTooDeep(t *testing.T) {
	c := &Compiler{Backend: testBackend(t), ObjectKind: "entity", Column: "properties"}
	var expr Expr = Leaf{Path: "a", Op: OpEq, Value: 1}
	for i := 0; i < 6; i++ { // 6 levels of wrapping exceeds the 5-level max
		expr = And{Children: []Expr{expr}}
	}
	if _, err := c.Compile(expr); err == nil {
		t.Fatalf("expected FilterTooDeep error")
	}
}

func TestGeneratedColumnSubstitution(t *testing.T) {
	c := &Compiler{
		Backend:    testBackend(t),
		ObjectKind: "entity",
		Column:     "properties",
		Columns:    ColumnMap{Key("entity", "$.name"): "prop_name"},
	}
	frag, err := c.Compile(Leaf{Path: "name", Op: OpEq, Value: "alice"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.HasPrefix(frag.SQL, "prop_name = ?") {
		t.Fatalf("expected substituted column, got %s", frag.SQL)
	}
}

func TestCompileUnknownOperator(t *testing.T) {
	c := &Compiler{Backend: testBackend(t), ObjectKind: "entity", Column: "properties"}
	if _, err := c.Compile(Leaf{Path: "a", Op: Op("bogus"), Value: 1}); err == nil {
		t.Fatalf("expected UnknownOperator error")
	}
}

func TestCoerceNumericAndBoolean(t *testing.T) {
	if coerce("42") != float64(42) {
		t.Fatalf("expected numeric coercion")
	}
	if coerce("true") != true {
		t.Fatalf("expected boolean coercion")
	}
	if coerce("hello") != "hello" {
		t.Fatalf("expected passthrough for non-numeric, non-boolean strings")
	}
}
