// Package storage defines the backend-agnostic contract for the relational
// side of the pipeline: database provisioning, table creation, and bulk
// inserts. Concrete backends register themselves through the factory; callers
// select one by kind and stay backend-agnostic from there on.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotConnected is returned by operations invoked after Close.
var ErrNotConnected = errors.New("storage: no client connected")

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend kind, e.g. "mysql", "postgres", "mssql", "sqlite"
	DSN  string // server connection string (unused by sqlite)
	Dir  string // database directory (sqlite only)
}

// Column is one relational column with its backend-native SQL type.
type Column struct {
	Name    string
	SQLType string
}

// Table is an ordered table definition. The first column is expected to be
// the surrogate id and is used as the primary key.
type Table struct {
	Name    string
	Columns []Column
}

// Catalog is the database-level view of a store: enough to enumerate existing
// databases and remove one. Both the relational and document stores satisfy
// it, which lets name-conflict resolution treat them uniformly.
type Catalog interface {
	ListDatabases(ctx context.Context) ([]string, error)
	DropDatabase(ctx context.Context, name string) error
}

// Repository is a relational backend. Every operation takes the database name
// explicitly; a Repository represents a server connection, not a database.
type Repository interface {
	Catalog

	// CreateDatabase creates an empty database.
	CreateDatabase(ctx context.Context, name string) error

	// CreateTables creates the given tables inside db, in order.
	CreateTables(ctx context.Context, db string, tables []Table) error

	// BulkInsert inserts rows into db.table in one batch. Row values are
	// positional and must match columns. It returns the number of rows
	// written.
	BulkInsert(ctx context.Context, db, table string, columns []string, rows [][]any) (int64, error)

	// Close releases the server connection. Further calls on the Repository
	// return ErrNotConnected.
	Close()
}

// Factory creates a Repository from a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under the given kind. Re-registering a
// kind overrides the previous factory, which tests rely on.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New constructs the Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	registryMu.Lock()
	f, ok := registry[cfg.Kind]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a snapshot of the registered backend kinds.
func ListKinds() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	return kinds
}
