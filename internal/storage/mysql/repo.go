// Package mysql implements the default relational backend on database/sql and
// the go-sql-driver. One connection pool serves every database on the server;
// statements qualify table names as `db`.`table` instead of switching the
// session's default schema.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"reviewetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg.DSN)
	})
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens a server-level connection. The DSN should name no
// default schema, e.g. "user:pass@tcp(localhost:3306)/".
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// ListDatabases implements storage.Catalog.
func (r *Repository) ListDatabases(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, storage.ErrNotConnected
	}
	rows, err := r.db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("mysql: show databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DropDatabase implements storage.Catalog.
func (r *Repository) DropDatabase(ctx context.Context, name string) error {
	if r.db == nil {
		return storage.ErrNotConnected
	}
	_, err := r.db.ExecContext(ctx, "DROP DATABASE "+ident(name))
	return err
}

// CreateDatabase implements storage.Repository.
func (r *Repository) CreateDatabase(ctx context.Context, name string) error {
	if r.db == nil {
		return storage.ErrNotConnected
	}
	_, err := r.db.ExecContext(ctx, "CREATE DATABASE "+ident(name))
	return err
}

// CreateTables implements storage.Repository.
func (r *Repository) CreateTables(ctx context.Context, db string, tables []storage.Table) error {
	if r.db == nil {
		return storage.ErrNotConnected
	}
	for _, t := range tables {
		if _, err := r.db.ExecContext(ctx, createTableSQL(db, t)); err != nil {
			return fmt.Errorf("mysql: create table %s.%s: %w", db, t.Name, err)
		}
	}
	return nil
}

func createTableSQL(db string, t storage.Table) string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		defs = append(defs, ident(c.Name)+" "+c.SQLType)
	}
	if len(t.Columns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+ident(t.Columns[0].Name)+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", fqn(db, t.Name), strings.Join(defs, ", "))
}

// BulkInsert writes all rows inside one transaction with a prepared statement,
// mirroring a driver-side executemany.
func (r *Repository) BulkInsert(ctx context.Context, db, table string, columns []string, rows [][]any) (int64, error) {
	if r.db == nil {
		return 0, storage.ErrNotConnected
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
		fqn(db, table), strings.Join(quoted, ", "), placeholders)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mysql: insert into %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return inserted, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
		r.db = nil
	}
}

func ident(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func fqn(db, table string) string { return ident(db) + "." + ident(table) }
