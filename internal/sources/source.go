// Package sources loads the tables that contracts are checked against.
// Each source kind wraps one backend: a database/sql driver, the BigQuery
// client, or a CSV file reachable through afs.
//
// Sources are thin. They never retry on their own; callers opt into retries
// with ExecuteWithRetry and see every attempt in the RetryResult.
package sources

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/canonica-labs/engarde/internal/errors"
	"github.com/canonica-labs/engarde/pkg/frame"
)

// Source loads a table.
type Source interface {
	// Name returns the source kind.
	Name() string

	// Load runs query and returns the result as a table.
	// Sources without a query language require an empty query.
	Load(ctx context.Context, query string) (*frame.Table, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the source. Close is idempotent.
	Close() error
}

// Config describes how to open a source.
type Config struct {
	Kind string

	// DSN is the driver connection string for SQL kinds.
	DSN string

	// Location is a local path or afs URL for file kinds.
	Location string

	// Project is the BigQuery project ID.
	Project string

	// CredentialsFile is a BigQuery service account key file.
	CredentialsFile string

	// Region is the BigQuery job location.
	Region string
}

// Factory opens a source from its configuration.
type Factory func(ctx context.Context, cfg Config) (Source, error)

// Registry maps source kinds to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for kind, replacing any existing one.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Open opens a source of cfg.Kind.
func (r *Registry) Open(ctx context.Context, cfg Config) (Source, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewUnknownSource(cfg.Kind, r.Kinds())
	}

	src, err := factory(ctx, cfg)
	if err != nil {
		return nil, errors.NewSourceUnavailable(cfg.Kind, err)
	}
	return src, nil
}

// WithIndex promotes column to the row index of t. An empty column leaves t unchanged.
func WithIndex(t *frame.Table, column string) (*frame.Table, error) {
	if column == "" {
		return t, nil
	}
	indexed, err := t.SetIndex(column)
	if err != nil {
		return nil, fmt.Errorf("set index %q: %w", column, err)
	}
	return indexed, nil
}

// Project keeps only columns of t, in the given order. An empty list leaves t
// unchanged.
func Project(t *frame.Table, columns []string) (*frame.Table, error) {
	if len(columns) == 0 {
		return t, nil
	}
	projected, err := t.Select(columns...)
	if err != nil {
		return nil, fmt.Errorf("select columns: %w", err)
	}
	return projected, nil
}
