// Package filter compiles property filter expressions into SQL fragments
// with positional bindings: a small AST (Leaf/And/Or) plus a
// tree-walking compiler that substitutes known JSON paths for generated
// columns where one exists.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/store"
)

// Op is a leaf comparison/pattern/set/existence operator.
type Op string

const (
	OpEq         Op = "eq"
	OpNe         Op = "ne"
	OpGt         Op = "gt"
	OpLt         Op = "lt"
	OpGte        Op = "gte"
	OpLte        Op = "lte"
	OpLike       Op = "like"
	OpILike      Op = "ilike"
	OpStartsWith Op = "starts_with"
	OpEndsWith   Op = "ends_with"
	OpContains   Op = "contains"
	OpIn         Op = "in"
	OpNotIn      Op = "not_in"
	OpExists     Op = "exists"
	OpNotExists  Op = "not_exists"
)

var validOps = map[Op]bool{
	OpEq: true, OpNe: true, OpGt: true, OpLt: true, OpGte: true, OpLte: true,
	OpLike: true, OpILike: true, OpStartsWith: true, OpEndsWith: true, OpContains: true,
	OpIn: true, OpNotIn: true, OpExists: true, OpNotExists: true,
}

// Expr is the filter AST: a tagged sum of And/Or groups and Leaf
// comparisons.
type Expr interface{ expr() }

// Leaf is a single path/op/value comparison.
type Leaf struct {
	Path  string
	Op    Op
	Value any   // absent for exists/not_exists
	Vals  []any // populated for in/not_in
}

func (Leaf) expr() {}

// And requires every child expression to hold.
type And struct{ Children []Expr }

func (And) expr() {}

// Or requires at least one child expression to hold.
type Or struct{ Children []Expr }

func (Or) expr() {}

const (
	maxPathDepth    = 10
	maxGroupNesting = 5
)

var segmentNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParsePath validates a user-syntax dotted/bracketed path and converts it
// to SQLite-style "$.foo.bar[0]" form.
func ParsePath(userPath string) (string, error) {
	if userPath == "" {
		return "", coreerr.Validation(coreerr.CodeInvalidPath, "empty path")
	}
	var b strings.Builder
	b.WriteString("$")

	segments, err := splitPath(userPath)
	if err != nil {
		return "", err
	}
	if len(segments) > maxPathDepth {
		return "", coreerr.Validation(coreerr.CodePathTooDeep, "path %q exceeds max depth %d", userPath, maxPathDepth)
	}
	for _, seg := range segments {
		if idx, ok := isIndex(seg); ok {
			b.WriteString(fmt.Sprintf("[%d]", idx))
			continue
		}
		if !segmentNameRe.MatchString(seg) {
			return "", coreerr.Validation(coreerr.CodeInvalidPath, "invalid path segment %q in %q", seg, userPath)
		}
		b.WriteString(".")
		b.WriteString(seg)
	}
	return b.String(), nil
}

// splitPath breaks "foo.bar[0].baz" into ["foo", "bar", "0", "baz"].
func splitPath(p string) ([]string, error) {
	p = strings.ReplaceAll(p, "[", ".[")
	var out []string
	for _, part := range strings.Split(p, ".") {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "[") {
			if !strings.HasSuffix(part, "]") {
				return nil, coreerr.Validation(coreerr.CodeInvalidPath, "unterminated index segment %q", part)
			}
			out = append(out, part[1:len(part)-1])
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

func isIndex(seg string) (int, bool) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ColumnMap maps "object_kind/$.path" to a registered generated column
// name, in the shape of the generated_columns rows migration 002 seeds.
// The caller supplies it; the Compiler does not read that table itself.
type ColumnMap map[string]string

// Key builds the ColumnMap lookup key for an object kind and compiled path.
func Key(objectKind, compiledPath string) string { return objectKind + "/" + compiledPath }

// Compiler compiles Expr trees against a given object kind and JSON column.
type Compiler struct {
	Backend    store.Backend
	ObjectKind string // "entity" or "link"
	Column     string // e.g. "properties"
	Columns    ColumnMap
}

// Compile validates and compiles expr into a SQL fragment.
func (c *Compiler) Compile(expr Expr) (store.Fragment, error) {
	return c.compile(expr, 0)
}

func (c *Compiler) compile(expr Expr, depth int) (store.Fragment, error) {
	if depth > maxGroupNesting {
		return store.Fragment{}, coreerr.Validation(coreerr.CodeFilterTooDeep, "filter nesting exceeds max depth %d", maxGroupNesting)
	}
	switch e := expr.(type) {
	case Leaf:
		return c.compileLeaf(e)
	case And:
		frags, err := c.compileChildren(e.Children, depth)
		if err != nil {
			return store.Fragment{}, err
		}
		return store.And(frags...), nil
	case Or:
		frags, err := c.compileChildren(e.Children, depth)
		if err != nil {
			return store.Fragment{}, err
		}
		return store.Or(frags...), nil
	default:
		return store.Fragment{}, coreerr.Validation(coreerr.CodeInvalidFields, "unknown filter expression type %T", expr)
	}
}

func (c *Compiler) compileChildren(children []Expr, depth int) ([]store.Fragment, error) {
	frags := make([]store.Fragment, 0, len(children))
	for _, child := range children {
		f, err := c.compile(child, depth+1)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func (c *Compiler) compileLeaf(l Leaf) (store.Fragment, error) {
	if !validOps[l.Op] {
		return store.Fragment{}, coreerr.Validation(coreerr.CodeUnknownOperator, "unknown operator %q", l.Op)
	}
	compiledPath, err := ParsePath(l.Path)
	if err != nil {
		return store.Fragment{}, err
	}

	expr := c.columnExpr(compiledPath)

	switch l.Op {
	case OpExists:
		return store.Fragment{SQL: expr + " IS NOT NULL"}, nil
	case OpNotExists:
		return store.Fragment{SQL: expr + " IS NULL"}, nil
	case OpIn, OpNotIn:
		if len(l.Vals) == 0 {
			// An empty IN-list can never match; NOT IN trivially matches everything.
			if l.Op == OpIn {
				return store.Fragment{SQL: "1=0"}, nil
			}
			return store.Fragment{SQL: "1=1"}, nil
		}
		placeholders := make([]string, len(l.Vals))
		args := make([]any, len(l.Vals))
		for i, v := range l.Vals {
			placeholders[i] = "?"
			args[i] = coerce(v)
		}
		op := "IN"
		if l.Op == OpNotIn {
			op = "NOT IN"
		}
		return store.Fragment{
			SQL:  fmt.Sprintf("%s %s (%s)", expr, op, strings.Join(placeholders, ",")),
			Args: args,
		}, nil
	case OpLike, OpILike, OpStartsWith, OpEndsWith, OpContains:
		return c.compilePattern(expr, l)
	default:
		sqlOp, ok := comparisonOps[l.Op]
		if !ok {
			return store.Fragment{}, coreerr.Validation(coreerr.CodeUnknownOperator, "unknown operator %q", l.Op)
		}
		return store.Fragment{SQL: expr + " " + sqlOp + " ?", Args: []any{coerce(l.Value)}}, nil
	}
}

var comparisonOps = map[Op]string{
	OpEq: "=", OpNe: "!=", OpGt: ">", OpLt: "<", OpGte: ">=", OpLte: "<=",
}

func (c *Compiler) compilePattern(expr string, l Leaf) (store.Fragment, error) {
	s, ok := l.Value.(string)
	if !ok {
		s = fmt.Sprintf("%v", l.Value)
	}
	var pattern string
	switch l.Op {
	case OpLike:
		pattern = s
	case OpILike, OpContains:
		pattern = "%" + escapeLike(s) + "%"
	case OpStartsWith:
		pattern = escapeLike(s) + "%"
	case OpEndsWith:
		pattern = "%" + escapeLike(s)
	}
	caseInsensitive := l.Op == OpILike || l.Op == OpContains || l.Op == OpStartsWith || l.Op == OpEndsWith
	if caseInsensitive {
		return store.Fragment{SQL: fmt.Sprintf("%s LIKE ? ESCAPE '\\'  COLLATE NOCASE", expr), Args: []any{pattern}}, nil
	}
	return store.Fragment{SQL: expr + " LIKE ?", Args: []any{pattern}}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// columnExpr returns the registered generated column when one exists for
// this (object kind, path) pair, else falls back to json_extract over the
// properties column.
func (c *Compiler) columnExpr(compiledPath string) string {
	if c.Columns != nil {
		if col, ok := c.Columns[Key(c.ObjectKind, compiledPath)]; ok {
			return col
		}
	}
	return c.Backend.JSONExtract(c.Column, compiledPath)
}

// coerce applies loose type coercion: numeric-looking strings parse to
// numbers, "true"/"false" parse to booleans, otherwise the value binds
// as-is (already a string/number/bool from JSON decoding, or a raw string
// from a flat query-string filter list).
func coerce(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
