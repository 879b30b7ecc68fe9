// Package sqlite implements a file-backed relational backend, mostly for
// local runs and tests. A "database" is a <name>.db file inside the
// configured directory, which keeps provisioning (list, create, drop, rename
// on conflict) meaningful without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"reviewetl/internal/storage"
)

var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(cfg.Dir)
	})
}

// Repository is a SQLite-backed storage.Repository over a directory of
// database files.
type Repository struct {
	dir   string
	conns map[string]*sql.DB
}

// NewRepository uses dir as the database directory, creating it if needed.
func NewRepository(dir string) (*Repository, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sqlite: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
	}
	return &Repository{dir: dir, conns: map[string]*sql.DB{}}, nil
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.dir, name+".db")
}

// ListDatabases implements storage.Catalog by listing *.db files.
func (r *Repository) ListDatabases(ctx context.Context) ([]string, error) {
	if r.conns == nil {
		return nil, storage.ErrNotConnected
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".db"))
	}
	return names, nil
}

// DropDatabase implements storage.Catalog by deleting the database file.
func (r *Repository) DropDatabase(ctx context.Context, name string) error {
	if r.conns == nil {
		return storage.ErrNotConnected
	}
	if db, ok := r.conns[name]; ok {
		_ = db.Close()
		delete(r.conns, name)
	}
	if err := os.Remove(r.path(name)); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", name, err)
	}
	return nil
}

// CreateDatabase implements storage.Repository by creating an empty file so
// the database shows up in ListDatabases before any table exists.
func (r *Repository) CreateDatabase(ctx context.Context, name string) error {
	if r.conns == nil {
		return storage.ErrNotConnected
	}
	f, err := os.OpenFile(r.path(name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sqlite: create %s: %w", name, err)
	}
	return f.Close()
}

// CreateTables implements storage.Repository.
func (r *Repository) CreateTables(ctx context.Context, db string, tables []storage.Table) error {
	conn, err := r.conn(db)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := conn.ExecContext(ctx, createTableSQL(t)); err != nil {
			return fmt.Errorf("sqlite: create table %s.%s: %w", db, t.Name, err)
		}
	}
	return nil
}

func createTableSQL(t storage.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, ident(c.Name)+" "+c.SQLType)
	}
	if len(t.Columns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+ident(t.Columns[0].Name)+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", ident(t.Name), strings.Join(defs, ", "))
}

// BulkInsert writes all rows inside one transaction with a prepared statement.
func (r *Repository) BulkInsert(ctx context.Context, db, table string, columns []string, rows [][]any) (int64, error) {
	conn, err := r.conn(db)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = ident(c)
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(table), strings.Join(quoted, ", "), placeholders)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// conn returns (opening on first use) the handle for one database file.
func (r *Repository) conn(name string) (*sql.DB, error) {
	if r.conns == nil {
		return nil, storage.ErrNotConnected
	}
	if db, ok := r.conns[name]; ok {
		return db, nil
	}
	db, err := sql.Open("sqlite", r.path(name))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", name, err)
	}
	r.conns[name] = db
	return db, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() {
	for _, db := range r.conns {
		_ = db.Close()
	}
	r.conns = nil
}

func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
