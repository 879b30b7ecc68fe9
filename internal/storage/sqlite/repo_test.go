package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"reviewetl/internal/storage"
)

func newTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewRepository(dir)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo, dir
}

func TestRepository_ProvisionListDrop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, _ := newTestRepo(t)

	for _, name := range []string{"reviews", "reviews_1"} {
		if err := repo.CreateDatabase(ctx, name); err != nil {
			t.Fatalf("CreateDatabase(%s): %v", name, err)
		}
	}

	dbs, err := repo.ListDatabases(ctx)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	sort.Strings(dbs)
	if want := []string{"reviews", "reviews_1"}; !reflect.DeepEqual(dbs, want) {
		t.Fatalf("databases = %v, want %v", dbs, want)
	}

	if err := repo.CreateDatabase(ctx, "reviews"); err == nil {
		t.Fatalf("duplicate CreateDatabase succeeded")
	}

	if err := repo.DropDatabase(ctx, "reviews"); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}
	dbs, _ = repo.ListDatabases(ctx)
	if want := []string{"reviews_1"}; !reflect.DeepEqual(dbs, want) {
		t.Fatalf("databases after drop = %v, want %v", dbs, want)
	}
}

func TestRepository_CreateTablesAndBulkInsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, dir := newTestRepo(t)

	if err := repo.CreateDatabase(ctx, "reviews"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	tables := []storage.Table{
		{Name: "users", Columns: []storage.Column{
			{Name: "id", SQLType: "VARCHAR(36)"},
			{Name: "reviewerID", SQLType: "VARCHAR(255)"},
			{Name: "reviewerName", SQLType: "VARCHAR(255)"},
		}},
	}
	if err := repo.CreateTables(ctx, "reviews", tables); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	rows := [][]any{
		{"id-1", "A", "Alice"},
		{"id-2", "B", nil},
	}
	n, err := repo.BulkInsert(ctx, "reviews", "users", []string{"id", "reviewerID", "reviewerName"}, rows)
	if err != nil {
		t.Fatalf("BulkInsert: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	// Read back through a fresh handle to prove the write was committed.
	db, err := sql.Open("sqlite", filepath.Join(dir, "reviews.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestRepository_BulkInsertRowShapeMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if err := repo.CreateTables(ctx, "reviews", []storage.Table{
		{Name: "items", Columns: []storage.Column{
			{Name: "id", SQLType: "VARCHAR(36)"},
			{Name: "asin", SQLType: "VARCHAR(255)"},
		}},
	}); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}

	_, err := repo.BulkInsert(ctx, "reviews", "items", []string{"id", "asin"}, [][]any{{"only-one"}})
	if err == nil {
		t.Fatalf("short row accepted")
	}
}

func TestRepository_ClosedReturnsErrNotConnected(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepo(t)
	repo.Close()

	if _, err := repo.ListDatabases(context.Background()); !errors.Is(err, storage.ErrNotConnected) {
		t.Fatalf("ListDatabases after Close = %v, want ErrNotConnected", err)
	}
	if err := repo.CreateDatabase(context.Background(), "x"); !errors.Is(err, storage.ErrNotConnected) {
		t.Fatalf("CreateDatabase after Close = %v, want ErrNotConnected", err)
	}
}

func TestFactory_RegistersSqliteKind(t *testing.T) {
	t.Parallel()

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	repo.Close()
}
