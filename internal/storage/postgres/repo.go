// Package postgres implements a relational backend on pgx v5. Postgres cannot
// address tables across databases, so the Repository keeps an admin pool for
// catalog work and opens one pool per target database, derived from the same
// DSN with the database name swapped.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reviewetl/internal/storage"
)

var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg.DSN)
	})
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	admin *pgxpool.Pool
	dsn   string
	pools map[string]*pgxpool.Pool
}

// NewRepository connects the admin pool using the provided DSN. The database
// named in the DSN (typically "postgres") is only used for catalog queries.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Repository{admin: pool, dsn: dsn, pools: map[string]*pgxpool.Pool{}}, nil
}

// ListDatabases implements storage.Catalog. Template databases are excluded.
func (r *Repository) ListDatabases(ctx context.Context) ([]string, error) {
	if r.admin == nil {
		return nil, storage.ErrNotConnected
	}
	rows, err := r.admin.Query(ctx, "SELECT datname FROM pg_database WHERE NOT datistemplate")
	if err != nil {
		return nil, fmt.Errorf("postgres: list databases: %w", err)
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
	if r.admin == nil {
		return storage.ErrNotConnected
	}
	if pool, ok := r.pools[name]; ok {
		pool.Close()
		delete(r.pools, name)
	}
	_, err := r.admin.Exec(ctx, "DROP DATABASE "+ident(name))
	return err
}

// CreateDatabase implements storage.Repository.
func (r *Repository) CreateDatabase(ctx context.Context, name string) error {
	if r.admin == nil {
		return storage.ErrNotConnected
	}
	_, err := r.admin.Exec(ctx, "CREATE DATABASE "+ident(name))
	return err
}

// CreateTables implements storage.Repository.
func (r *Repository) CreateTables(ctx context.Context, db string, tables []storage.Table) error {
	pool, err := r.pool(ctx, db)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := pool.Exec(ctx, createTableSQL(t)); err != nil {
			return fmt.Errorf("postgres: create table %s.%s: %w", db, t.Name, err)
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

// BulkInsert implements storage.Repository using the COPY protocol.
func (r *Repository) BulkInsert(ctx context.Context, db, table string, columns []string, rows [][]any) (int64, error) {
	pool, err := r.pool(ctx, db)
	if err != nil {
		return 0, err
	}
	return pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// pool returns (opening on first use) the connection pool for one database.
func (r *Repository) pool(ctx context.Context, db string) (*pgxpool.Pool, error) {
	if r.admin == nil {
		return nil, storage.ErrNotConnected
	}
	if pool, ok := r.pools[db]; ok {
		return pool, nil
	}
	cfg, err := pgxpool.ParseConfig(r.dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.ConnConfig.Database = db
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool for %s: %w", db, err)
	}
	r.pools[db] = pool
	return pool, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() {
	for _, pool := range r.pools {
		pool.Close()
	}
	r.pools = nil
	if r.admin != nil {
		r.admin.Close()
		r.admin = nil
	}
}

func ident(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
