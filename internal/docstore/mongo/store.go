// Package mongo implements the document store on the official MongoDB driver.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reviewetl/internal/docstore"
	"reviewetl/pkg/records"
)

var newStore = NewStore

var _ docstore.Store = (*Store)(nil)

func init() {
	docstore.Register("mongo", func(ctx context.Context, cfg docstore.Config) (docstore.Store, error) {
		return newStore(ctx, cfg.URI)
	})
}

// Store is a MongoDB-backed docstore.Store.
type Store struct {
	client *mongo.Client
}

// NewStore connects and pings the server at uri.
func NewStore(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &Store{client: client}, nil
}

// ListDatabases implements docstore.Store.
func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, docstore.ErrNotConnected
	}
	names, err := s.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: list databases: %w", err)
	}
	return names, nil
}

// DropDatabase implements docstore.Store.
func (s *Store) DropDatabase(ctx context.Context, name string) error {
	if s.client == nil {
		return docstore.ErrNotConnected
	}
	return s.client.Database(name).Drop(ctx)
}

// InsertReviews implements docstore.Store using one InsertMany call.
func (s *Store) InsertReviews(ctx context.Context, db string, docs []records.Record) (int64, error) {
	if s.client == nil {
		return 0, docstore.ErrNotConnected
	}
	if len(docs) == 0 {
		return 0, nil
	}
	payload := make([]any, len(docs))
	for i, d := range docs {
		payload[i] = map[string]any(d)
	}
	res, err := s.client.Database(db).Collection(docstore.CollectionReviews).InsertMany(ctx, payload)
	var inserted int64
	if res != nil {
		inserted = int64(len(res.InsertedIDs))
	}
	if err != nil {
		return inserted, fmt.Errorf("mongo: insert reviews: %w", err)
	}
	return inserted, nil
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}
