// Package etl orchestrates one pipeline run: load the raw review files,
// normalize them into users, items, and reviews across a pool of chunk
// workers, then commit the results to the relational and document stores.
package etl

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"reviewetl/internal/config"
	"reviewetl/internal/docstore"
	"reviewetl/internal/identity"
	"reviewetl/internal/loader"
	"reviewetl/internal/normalize"
	"reviewetl/internal/progress"
	"reviewetl/internal/storage"
	"reviewetl/pkg/records"
)

// Relational table names.
const (
	TableUsers = "users"
	TableItems = "items"
)

// idSQLType is the column type of every surrogate id (textual UUID).
const idSQLType = "VARCHAR(36)"

// Deps carries the run's external dependencies. Repo and Docs must be set;
// the progress hooks may be nil, in which case the run is silent.
type Deps struct {
	Repo storage.Repository
	Docs docstore.Store

	// NewProgress returns the sink that receives one Add per normalized
	// record. total is the number of loaded records.
	NewProgress func(total int) progress.Sink

	// OnPhase is called when a named pipeline phase begins; the returned
	// function is called when it ends.
	OnPhase func(label string) (stop func())
}

// Result summarizes a completed run. RelationalDB and DocumentDB carry the
// names actually written to, which differ from the configured names when the
// autoRename conflict policy applied.
type Result struct {
	RelationalDB string
	DocumentDB   string

	LoadStats loader.Stats
	Users     int
	Items     int
	Reviews   int
}

// Run executes the whole pipeline. Nothing is written to either store unless
// loading and normalization completed; a failure between the relational and
// document commits is reported as a *PartialCommitError.
func Run(ctx context.Context, cfg config.Config, deps Deps) (Result, error) {
	newProgress := deps.NewProgress
	if newProgress == nil {
		newProgress = func(int) progress.Sink { return progress.Nop{} }
	}
	onPhase := deps.OnPhase
	if onPhase == nil {
		onPhase = func(string) func() { return func() {} }
	}

	stop := onPhase("loading review files")
	raw, stats, err := loader.Load(ctx, cfg.Data.Dir)
	stop()
	if err != nil {
		return Result{}, err
	}
	log.Printf("etl: loaded files=%d records=%d duplicate_lines=%d", stats.Files, stats.Records, stats.DuplicateLines)

	spec := normalize.Spec{
		UserFields:   config.ColumnNames(cfg.ETL.UserColumns),
		ItemFields:   config.ColumnNames(cfg.ETL.ItemColumns),
		ReviewFields: cfg.ETL.ReviewFields,
	}
	users, items, reviews, err := normalizeAll(ctx, raw, spec, cfg.ETL.Workers, newProgress(len(raw)))
	if err != nil {
		return Result{}, err
	}
	log.Printf("etl: normalized users=%d items=%d reviews=%d workers=%d", len(users), len(items), len(reviews), cfg.ETL.Workers)

	relName, err := storage.ResolveDBName(ctx, deps.Repo, cfg.ETL.RelationalDB, cfg.ETL.OnConflict)
	if err != nil {
		return Result{}, fmt.Errorf("relational database: %w", err)
	}
	docName, err := storage.ResolveDBName(ctx, deps.Docs, cfg.ETL.DocumentDB, cfg.ETL.OnConflict)
	if err != nil {
		return Result{}, fmt.Errorf("document database: %w", err)
	}
	if relName != cfg.ETL.RelationalDB || docName != cfg.ETL.DocumentDB {
		log.Printf("etl: renamed relational_db=%s document_db=%s", relName, docName)
	}

	if err := deps.Repo.CreateDatabase(ctx, relName); err != nil {
		return Result{}, fmt.Errorf("create database %s: %w", relName, err)
	}
	tables := []storage.Table{
		tableFor(TableUsers, cfg.ETL.UserColumns),
		tableFor(TableItems, cfg.ETL.ItemColumns),
	}
	if err := deps.Repo.CreateTables(ctx, relName, tables); err != nil {
		return Result{}, err
	}

	stop = onPhase("saving users and items")
	userCols := insertColumns(cfg.ETL.UserColumns)
	if _, err := deps.Repo.BulkInsert(ctx, relName, TableUsers, userCols, rowsFromRecords(users, userCols)); err != nil {
		stop()
		return Result{}, fmt.Errorf("insert users: %w", err)
	}
	itemCols := insertColumns(cfg.ETL.ItemColumns)
	if _, err := deps.Repo.BulkInsert(ctx, relName, TableItems, itemCols, rowsFromRecords(items, itemCols)); err != nil {
		stop()
		return Result{}, fmt.Errorf("insert items: %w", err)
	}
	stop()

	stop = onPhase("saving reviews")
	_, err = deps.Docs.InsertReviews(ctx, docName, reviews)
	stop()
	if err != nil {
		// The relational commit already happened; name the database so the
		// operator knows what to clean up.
		return Result{}, &PartialCommitError{RelationalDB: relName, Err: err}
	}

	log.Printf("etl: committed relational_db=%s document_db=%s", relName, docName)
	return Result{
		RelationalDB: relName,
		DocumentDB:   docName,
		LoadStats:    stats,
		Users:        len(users),
		Items:        len(items),
		Reviews:      len(reviews),
	}, nil
}

// normalizeAll fans the raw records out across chunk workers sharing the two
// identity registries, then merges the per-chunk outputs in chunk order so
// review order follows input order. The first worker error cancels the rest
// and discards all partial output.
func normalizeAll(ctx context.Context, raw []records.Record, spec normalize.Spec, workers int, sink progress.Sink) (users, items, reviews []records.Record, err error) {
	userReg, itemReg := identity.NewRegistry(), identity.NewRegistry()
	chunks := chunkBounds(len(raw), workers)

	type chunkOut struct {
		users, items, reviews []records.Record
	}
	outs := make([]chunkOut, len(chunks))

	var processed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			var out chunkOut
			out.reviews = make([]records.Record, 0, c.End-c.Start)
			for _, rec := range raw[c.Start:c.End] {
				if err := ctx.Err(); err != nil {
					return err
				}
				user, item, review := normalize.Apply(rec, userReg, itemReg, spec)
				if user != nil {
					out.users = append(out.users, user)
				}
				if item != nil {
					out.items = append(out.items, item)
				}
				out.reviews = append(out.reviews, review)
				processed.Add(1)
				sink.Add(1)
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	for _, out := range outs {
		users = append(users, out.users...)
		items = append(items, out.items...)
		reviews = append(reviews, out.reviews...)
	}
	if n := processed.Load(); int(n) != len(raw) {
		return nil, nil, nil, fmt.Errorf("normalized %d of %d records", n, len(raw))
	}
	return users, items, reviews, nil
}

// tableFor builds the DDL definition for one table: the surrogate id column
// followed by the configured typed columns.
func tableFor(name string, cols []config.ColumnSpec) storage.Table {
	columns := make([]storage.Column, 0, len(cols)+1)
	columns = append(columns, storage.Column{Name: "id", SQLType: idSQLType})
	for _, c := range cols {
		columns = append(columns, storage.Column{Name: c.Name, SQLType: c.Type})
	}
	return storage.Table{Name: name, Columns: columns}
}

// insertColumns is the positional column order used for bulk inserts.
func insertColumns(cols []config.ColumnSpec) []string {
	return append([]string{"id"}, config.ColumnNames(cols)...)
}

// rowsFromRecords projects records onto positional rows in column order.
// Missing fields become NULLs.
func rowsFromRecords(recs []records.Record, columns []string) [][]any {
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = rec.Value(col)
		}
		rows[i] = row
	}
	return rows
}
