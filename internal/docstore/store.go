// Package docstore defines the document-side contract of the pipeline: a
// database catalog plus bulk insertion of review documents into the fixed
// reviews collection. Backends register with the factory the same way the
// relational backends do.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reviewetl/pkg/records"
)

// CollectionReviews is the collection every backend writes reviews into.
const CollectionReviews = "reviews"

// ErrNotConnected is returned by operations invoked after Close.
var ErrNotConnected = errors.New("docstore: no client connected")

// Config selects and configures a backend.
type Config struct {
	Kind string // registered backend kind, e.g. "mongo", "memory"
	URI  string // server connection string
}

// Store is a document backend. Its ListDatabases and DropDatabase methods
// deliberately match storage.Catalog so name-conflict resolution works
// against either store.
type Store interface {
	ListDatabases(ctx context.Context) ([]string, error)
	DropDatabase(ctx context.Context, name string) error

	// InsertReviews inserts docs into db's reviews collection in one batch
	// and returns the number of documents written.
	InsertReviews(ctx context.Context, db string, docs []records.Record) (int64, error)

	// Close releases the client. Further calls return ErrNotConnected.
	Close(ctx context.Context) error
}

// Factory creates a Store from a Config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	registryMu sync.Mutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under the given kind.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New constructs the Store for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	registryMu.Lock()
	f, ok := registry[cfg.Kind]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unsupported docstore.kind=%s", cfg.Kind)
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
