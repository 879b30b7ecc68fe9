// Package mssql implements a relational backend on the go-mssqldb driver.
// SQL Server addresses tables across databases directly, so a single pool
// serves every database with [db].[dbo].[table] qualified names.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"reviewetl/internal/storage"
)

var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg.DSN)
	})
}

// Repository is an MSSQL-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository validates the DSN and opens a server-level connection.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql: dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// ListDatabases implements storage.Catalog. System databases are excluded.
func (r *Repository) ListDatabases(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, storage.ErrNotConnected
	}
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM sys.databases WHERE database_id > 4")
	if err != nil {
		return nil, fmt.Errorf("mssql: list databases: %w", err)
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
			return fmt.Errorf("mssql: create table %s.%s: %w", db, t.Name, err)
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

// BulkInsert writes all rows inside one transaction with a prepared statement.
func (r *Repository) BulkInsert(ctx context.Context, db, table string, columns []string, rows [][]any) (int64, error) {
	if r.db == nil {
		return 0, storage.ErrNotConnected
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, c := range columns {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		quoted[i] = ident(c)
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		fqn(db, table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mssql: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mssql: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("mssql: insert into %s: %w", table, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
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

func ident(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func fqn(db, table string) string { return ident(db) + ".[dbo]." + ident(table) }
