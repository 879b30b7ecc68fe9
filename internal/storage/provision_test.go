package storage

import (
	"context"
	"errors"
	"testing"

	"reviewetl/internal/config"
)

func TestResolveDBName_NoConflict(t *testing.T) {
	t.Parallel()

	cat := &fakeRepo{databases: []string{"other"}}
	got, err := ResolveDBName(context.Background(), cat, "amz_reviews", config.ConflictFail)
	if err != nil {
		t.Fatalf("ResolveDBName: %v", err)
	}
	if got != "amz_reviews" {
		t.Fatalf("name = %q, want amz_reviews", got)
	}
}

func TestResolveDBName_FailPolicy(t *testing.T) {
	t.Parallel()

	cat := &fakeRepo{databases: []string{"amz_reviews"}}
	_, err := ResolveDBName(context.Background(), cat, "amz_reviews", config.ConflictFail)

	var conflict *NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *NameConflictError", err)
	}
	if conflict.Name != "amz_reviews" {
		t.Fatalf("conflict.Name = %q", conflict.Name)
	}
}

func TestResolveDBName_DropPolicy(t *testing.T) {
	t.Parallel()

	cat := &fakeRepo{databases: []string{"amz_reviews", "other"}}
	got, err := ResolveDBName(context.Background(), cat, "amz_reviews", config.ConflictDrop)
	if err != nil {
		t.Fatalf("ResolveDBName: %v", err)
	}
	if got != "amz_reviews" {
		t.Fatalf("name = %q, want amz_reviews", got)
	}

	dbs, _ := cat.ListDatabases(context.Background())
	for _, db := range dbs {
		if db == "amz_reviews" {
			t.Fatalf("existing database not dropped: %v", dbs)
		}
	}
}

func TestResolveDBName_AutoRename(t *testing.T) {
	t.Parallel()

	cat := &fakeRepo{databases: []string{"amz_reviews"}}
	got, err := ResolveDBName(context.Background(), cat, "amz_reviews", config.ConflictAutoRename)
	if err != nil {
		t.Fatalf("ResolveDBName: %v", err)
	}
	if got != "amz_reviews_1" {
		t.Fatalf("name = %q, want amz_reviews_1", got)
	}
}

// TestResolveDBName_AutoRenameLowestGap checks the rename picks the lowest
// unused suffix, not one past the highest.
func TestResolveDBName_AutoRenameLowestGap(t *testing.T) {
	t.Parallel()

	cat := &fakeRepo{databases: []string{"amz_reviews", "amz_reviews_1", "amz_reviews_3"}}
	got, err := ResolveDBName(context.Background(), cat, "amz_reviews", config.ConflictAutoRename)
	if err != nil {
		t.Fatalf("ResolveDBName: %v", err)
	}
	if got != "amz_reviews_2" {
		t.Fatalf("name = %q, want amz_reviews_2", got)
	}
}
