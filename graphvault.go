// Package core wires together the graph store's component packages into
// a single entry point for external Go consumers: open a backend,
// construct a Vault, and call its Store/Types/Groups/Graph/Config
// fields.
package core

import (
	"context"
	"fmt"

	"github.com/graphvault/core/internal/acl"
	"github.com/graphvault/core/internal/audit"
	"github.com/graphvault/core/internal/cache"
	"github.com/graphvault/core/internal/dbconfig"
	"github.com/graphvault/core/internal/graph"
	"github.com/graphvault/core/internal/groupregistry"
	"github.com/graphvault/core/internal/idgen"
	"github.com/graphvault/core/internal/store"
	"github.com/graphvault/core/internal/store/dolt"
	"github.com/graphvault/core/internal/store/sqlite"
	"github.com/graphvault/core/internal/typeregistry"
	"github.com/graphvault/core/internal/versionstore"
)

// Vault is the assembled graph store: every component package, already
// wired to a shared backend, ACL engine, and cache-generation counter.
type Vault struct {
	Backend store.Backend

	Store  *versionstore.Store
	Types  *typeregistry.Registry
	Groups *groupregistry.Registry
	Graph  *graph.Traverser
	Config *dbconfig.Store

	acl *acl.Engine
}

// SQLiteConfig opens an embedded modernc.org/sqlite-backed Vault. path
// may be ":memory:" for an ephemeral store.
func SQLiteConfig(path string) OpenFunc {
	return func(ctx context.Context) (store.Backend, error) {
		return sqlite.Open(ctx, path)
	}
}

// DoltConfig opens a dolthub/driver-backed Vault (embedded or
// server-mode, per cfg.ServerMode).
func DoltConfig(cfg dolt.Config) OpenFunc {
	return func(ctx context.Context) (store.Backend, error) {
		return dolt.Open(ctx, cfg)
	}
}

// OpenFunc constructs a store.Backend; see SQLiteConfig and DoltConfig.
type OpenFunc func(ctx context.Context) (store.Backend, error)

// Open constructs a Vault over the backend openFn produces, wiring the
// shared acl.Engine, cache.Generation, and idgen.Clock through every
// component package so a membership or ACL write invalidates every
// reader's cache.
func Open(ctx context.Context, openFn OpenFunc, clock idgen.Clock) (*Vault, error) {
	backend, err := openFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	if clock == nil {
		clock = idgen.SystemClock{}
	}

	generation := &cache.Generation{}
	aclEng := acl.New(backend, clock, generation)
	types := typeregistry.New(backend, clock)
	vs := versionstore.New(backend, aclEng, types, clock)
	groups := groupregistry.New(backend, clock, generation)
	traverser := graph.New(backend, aclEng)
	cfg := dbconfig.New(backend)

	return &Vault{
		Backend: backend,
		Store:   vs,
		Types:   types,
		Groups:  groups,
		Graph:   traverser,
		Config:  cfg,
		acl:     aclEng,
	}, nil
}

// WithAudit wires rec as the Vault's version-store audit sink (best-effort
// event recording) and returns the Vault for chaining.
func (v *Vault) WithAudit(rec audit.Recorder) *Vault {
	v.Store.WithAudit(rec)
	return v
}

// Close releases the underlying backend's connection pool.
func (v *Vault) Close() error {
	return v.Backend.Close()
}
