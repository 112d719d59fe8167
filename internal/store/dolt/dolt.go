// Package dolt implements store.Backend over an embedded Dolt database
// (MySQL dialect, native version control): a Config struct covering the
// embedded/server-mode split, cenkalti/backoff retry around transient
// connection errors, and the committer-identity fields Dolt commits
// need.
package dolt

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/dolthub/driver"
	_ "github.com/go-sql-driver/mysql"

	"github.com/cenkalti/backoff/v4"

	"github.com/graphvault/core/internal/store/migrations"
)

// Config configures an embedded or server-mode Dolt connection.
type Config struct {
	// Path to the Dolt database directory (embedded mode).
	Path string
	// Database is the Dolt database name within Path/the server.
	Database string
	CommitterName  string
	CommitterEmail string

	// ServerMode connects to a running dolt sql-server via the MySQL
	// wire protocol instead of opening the embedded driver.
	ServerMode     bool
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
}

func (c Config) database() string {
	if c.Database != "" {
		return c.Database
	}
	return "graphvault"
}

// retryMaxElapsed bounds how long server-mode Open retries a transient
// connection error before giving up, matching server-mode
// retry budget for a pool that just lost a connection to a restarting
// dolt sql-server.
const retryMaxElapsed = 30 * time.Second

// Backend is the Dolt-backed store.Backend.
type Backend struct {
	db *sql.DB
}

// Open connects to Dolt (embedded or server mode per cfg) and applies
// pending migrations.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	var (
		db  *sql.DB
		err error
	)
	if cfg.ServerMode {
		db, err = openServerMode(ctx, cfg)
	} else {
		db, err = openEmbedded(cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(ctx, db, migrations.DialectMySQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Backend{db: db}, nil
}

func openEmbedded(cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file://%s?commitname=%s&commitemail=%s&database=%s",
		cfg.Path, cfg.CommitterName, cfg.CommitterEmail, cfg.database())
	db, err := sql.Open("dolt", dsn)
	if err != nil {
		return nil, fmt.Errorf("open embedded dolt: %w", err)
	}
	db.SetMaxOpenConns(1) // embedded Dolt, like SQLite, tolerates exactly one writer
	return db, nil
}

func openServerMode(ctx context.Context, cfg Config) (*sql.DB, error) {
	host, port := cfg.ServerHost, cfg.ServerPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = 3307
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.ServerUser, cfg.ServerPassword, host, port, cfg.database())

	var db *sql.DB
	op := func() error {
		var err error
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return err
		}
		return db.PingContext(ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("connect to dolt sql-server: %w", err)
	}
	return db, nil
}

// DB returns the underlying connection pool.
func (b *Backend) DB() *sql.DB { return b.db }

// JSONExtract returns Dolt/MySQL's JSON_EXTRACT(column, path).
func (b *Backend) JSONExtract(column, path string) string {
	return fmt.Sprintf("JSON_EXTRACT(%s, '%s')", column, path)
}

// SupportsRecursiveCTE is true: Dolt is MySQL 8-compatible and supports
// WITH RECURSIVE.
func (b *Backend) SupportsRecursiveCTE() bool { return true }

// Dialect identifies this backend for dialect-sensitive callers.
func (b *Backend) Dialect() string { return "mysql" }

// Close releases the connection pool.
func (b *Backend) Close() error { return b.db.Close() }

// AsOf implements store.TimeTravel: a FROM-clause table reference reading
// table as it existed at the given Dolt commit hash, tag, or branch.
func (b *Backend) AsOf(table, ref string) string {
	return fmt.Sprintf("%s AS OF '%s'", table, ref)
}
