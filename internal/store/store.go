// Package store defines the backend-agnostic storage contract consumed by
// every higher-level core package. A Backend wraps a *sql.DB and adds the
// dialect-sensitive primitives the rest of the core needs: a JSON-path
// extraction expression and a dialect tag.
package store

import (
	"context"
	"database/sql"
)

// Backend is the thin abstraction over a relational key/JSON store that
// every component above it (filter compiler, ACL engine, version-chain
// store, graph traversal) is written against. Two implementations exist:
// sqlite (modernc.org/sqlite) and dolt (dolthub/driver or
// go-sql-driver/mysql in server mode).
type Backend interface {
	// DB returns the underlying connection pool for call sites that need
	// raw database/sql access (prepared statements, transactions).
	DB() *sql.DB

	// JSONExtract returns the dialect-specific SQL expression extracting
	// the given SQLite-style JSON path ("$.foo.bar[0]") from column.
	JSONExtract(column, path string) string

	// SupportsRecursiveCTE reports whether WITH RECURSIVE queries are
	// available; the version-chain store falls back to an iterative Go
	// loop when false (group traversal always uses an iterative loop).
	SupportsRecursiveCTE() bool

	// Dialect names the SQL dialect for callers that must branch on it
	// (e.g. upsert syntax differs between SQLite and MySQL/Dolt).
	Dialect() string

	// Close releases the backend's resources.
	Close() error
}

// TimeTravel is an optional capability a Backend may implement. The Dolt
// backend implements it (native AS OF / dolt_history_* support); the
// version-chain store does not depend on it — versioning here is
// application-level and backend-portable — but callers that know they
// are on Dolt may type-assert for it.
type TimeTravel interface {
	// AsOf returns a table reference usable in a FROM clause that reads
	// the table as it existed at the given Dolt commit/branch ref.
	AsOf(table, ref string) string
}

// Stmt is a lightweight "prepare/bind/first/run" wrapper over
// database/sql's *sql.Stmt.
type Stmt struct {
	stmt *sql.Stmt
}

// Prepare compiles sql against the backend's connection pool.
func Prepare(ctx context.Context, b Backend, query string) (*Stmt, error) {
	s, err := b.DB().PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &Stmt{stmt: s}, nil
}

// Close releases the prepared statement.
func (s *Stmt) Close() error { return s.stmt.Close() }

// First runs the statement and scans the first row's columns into dest.
func (s *Stmt) First(ctx context.Context, args []any, dest ...any) error {
	return s.stmt.QueryRowContext(ctx, args...).Scan(dest...)
}

// Run executes the statement for its side effects and returns rows affected.
func (s *Stmt) Run(ctx context.Context, args []any) (int64, error) {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Statement is one unit of work in a Batch call: SQL text plus its
// positional bindings.
type Statement struct {
	SQL  string
	Args []any
}

// Batch executes every statement inside a single transaction: all
// statements run or none do.
func Batch(ctx context.Context, b Backend, stmts []Statement) error {
	tx, err := b.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Fragment is a compiled SQL condition plus its positional bindings,
// the unit the property-filter compiler and the ACL engine's bulk
// clause both produce.
type Fragment struct {
	SQL  string
	Args []any
}

// And joins fragments with AND, parenthesizing each side.
func And(frags ...Fragment) Fragment {
	return join(" AND ", frags)
}

// Or joins fragments with OR, parenthesizing each side.
func Or(frags ...Fragment) Fragment {
	return join(" OR ", frags)
}

func join(sep string, frags []Fragment) Fragment {
	if len(frags) == 0 {
		return Fragment{SQL: "1=1"}
	}
	out := Fragment{}
	for i, f := range frags {
		if i > 0 {
			out.SQL += sep
		}
		out.SQL += "(" + f.SQL + ")"
		out.Args = append(out.Args, f.Args...)
	}
	return out
}
