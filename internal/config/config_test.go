package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	if c.ETL.Workers != 4 {
		t.Fatalf("Workers = %d, want 4", c.ETL.Workers)
	}
	if c.ETL.RelationalDB != "amz_reviews" || c.ETL.DocumentDB != "amz_reviews" {
		t.Fatalf("db names = (%q, %q), want amz_reviews", c.ETL.RelationalDB, c.ETL.DocumentDB)
	}
	if c.ETL.OnConflict != ConflictFail {
		t.Fatalf("OnConflict = %q, want %q", c.ETL.OnConflict, ConflictFail)
	}
	if got, want := ColumnNames(c.ETL.UserColumns), []string{"reviewerID", "reviewerName"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("user columns = %v, want %v", got, want)
	}
	if got, want := ColumnNames(c.ETL.ItemColumns), []string{"asin", "category"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("item columns = %v, want %v", got, want)
	}
	if c.Stores.Relational.Kind != "mysql" {
		t.Fatalf("relational kind = %q, want mysql", c.Stores.Relational.Kind)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
	  "data": { "dir": "reviews" },
	  "etl": { "workers": 2, "on_conflict": "drop" },
	  "stores": {
	    "relational": { "kind": "sqlite", "dir": "/tmp/dbs" },
	    "document":   { "kind": "memory" }
	  }
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Data.Dir != "reviews" {
		t.Fatalf("Dir = %q, want reviews", c.Data.Dir)
	}
	if c.ETL.Workers != 2 {
		t.Fatalf("Workers = %d, want 2", c.ETL.Workers)
	}
	if c.ETL.OnConflict != ConflictDrop {
		t.Fatalf("OnConflict = %q, want drop", c.ETL.OnConflict)
	}
	// Unstated fields fall back to defaults.
	if c.ETL.RelationalDB != "amz_reviews" {
		t.Fatalf("RelationalDB = %q, want amz_reviews", c.ETL.RelationalDB)
	}
	if len(c.ETL.ReviewFields) == 0 {
		t.Fatalf("ReviewFields not defaulted")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"nope": 1}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("Load accepted unknown field")
	}
}

func TestValidate_CleanConfig(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Stores.Relational.DSN = "root:pw@tcp(localhost:3306)/"
	c.Stores.Document.URI = "mongodb://localhost:27017"

	if issues := Validate(c); len(issues) != 0 {
		t.Fatalf("Validate returned issues for a clean config: %v", issues)
	}
}

func TestValidate_Findings(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Data.Dir = ""
	c.ETL.OnConflict = "ask"
	c.ETL.UserColumns = []ColumnSpec{{Name: "id", Type: "VARCHAR(255)"}}
	c.Stores.Relational.DSN = "" // kind=mysql needs a DSN
	c.Stores.Document.URI = ""   // kind=mongo needs a URI
	c.Metrics.Backend = "statsite"

	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("expected error findings, got %v", issues)
	}

	paths := map[string]bool{}
	for _, iss := range issues {
		paths[iss.Path] = true
	}
	for _, want := range []string{
		"data.dir",
		"etl.on_conflict",
		"etl.user_columns[0].name",
		"stores.relational.dsn",
		"stores.document.uri",
		"metrics.backend",
	} {
		if !paths[want] {
			t.Fatalf("missing issue for %s in %v", want, issues)
		}
	}
}

func TestValidate_SqliteNeedsDir(t *testing.T) {
	t.Parallel()

	c := Default()
	c.Stores.Relational.Kind = "sqlite"
	c.Stores.Document.Kind = "memory"

	issues := Validate(c)
	found := false
	for _, iss := range issues {
		if iss.Path == "stores.relational.dir" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sqlite without dir not flagged: %v", issues)
	}
}
