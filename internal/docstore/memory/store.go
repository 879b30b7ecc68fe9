// Package memory implements an in-process document store used by tests and
// local runs that do not have a MongoDB server.
package memory

import (
	"context"
	"fmt"
	"sync"

	"reviewetl/internal/docstore"
	"reviewetl/pkg/records"
)

var _ docstore.Store = (*Store)(nil)

func init() {
	docstore.Register("memory", func(ctx context.Context, cfg docstore.Config) (docstore.Store, error) {
		return NewStore(), nil
	})
}

// Store keeps every database's reviews collection in a map. All methods are
// safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	dbs    map[string][]records.Record
	closed bool

	// FailInsert, when set, is returned by the next InsertReviews call.
	// Tests use it to simulate a document-side commit failure.
	FailInsert error
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{dbs: map[string][]records.Record{}}
}

// ListDatabases implements docstore.Store.
func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrNotConnected
	}
	names := make([]string, 0, len(s.dbs))
	for name := range s.dbs {
		names = append(names, name)
	}
	return names, nil
}

// DropDatabase implements docstore.Store.
func (s *Store) DropDatabase(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrNotConnected
	}
	if _, ok := s.dbs[name]; !ok {
		return fmt.Errorf("memory: no database %q", name)
	}
	delete(s.dbs, name)
	return nil
}

// InsertReviews implements docstore.Store.
func (s *Store) InsertReviews(ctx context.Context, db string, docs []records.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, docstore.ErrNotConnected
	}
	if s.FailInsert != nil {
		return 0, s.FailInsert
	}
	s.dbs[db] = append(s.dbs[db], docs...)
	return int64(len(docs)), nil
}

// Reviews returns a copy of db's reviews collection.
func (s *Store) Reviews(db string) []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]records.Record(nil), s.dbs[db]...)
}

// Seed creates db with the given documents, replacing any existing contents.
func (s *Store) Seed(db string, docs ...records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbs[db] = append([]records.Record(nil), docs...)
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
