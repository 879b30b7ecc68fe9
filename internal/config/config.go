// Package config defines the canonical, JSON-serializable configuration model
// for the review ETL. It is intentionally small and explicit so that run
// configurations can be loaded from disk and passed through the program
// without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Go field names mirror the JSON structure used in config files.
//  3. Determinism: column specifications are ordered slices, not maps, so the
//     generated DDL and insert column order never depend on map iteration.
//
// Example (trimmed):
//
//	{
//	  "data": { "dir": "data" },
//	  "etl": {
//	    "workers": 4,
//	    "relational_db": "amz_reviews",
//	    "document_db": "amz_reviews",
//	    "on_conflict": "autoRename"
//	  },
//	  "stores": {
//	    "relational": { "kind": "mysql", "dsn": "user:pass@tcp(localhost:3306)/" },
//	    "document":   { "kind": "mongo", "uri": "mongodb://localhost:27017" }
//	  }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ConflictPolicy decides what happens when a target database name already
// exists at provisioning time. The interactive drop-or-rename prompt of
// earlier tooling is replaced by this explicit setting.
type ConflictPolicy string

const (
	// ConflictFail aborts the run. This is the default: an existing database
	// is never overwritten implicitly.
	ConflictFail ConflictPolicy = "fail"
	// ConflictDrop drops the existing database and reuses its name.
	ConflictDrop ConflictPolicy = "drop"
	// ConflictAutoRename picks "<name>_N" with the lowest unused N.
	ConflictAutoRename ConflictPolicy = "autoRename"
)

// Config is the top-level object decoded from a config file.
type Config struct {
	Data    Data    `json:"data"`
	ETL     ETL     `json:"etl"`
	Stores  Stores  `json:"stores"`
	Metrics Metrics `json:"metrics"`
}

// Data locates the input files.
type Data struct {
	// Dir is the directory holding newline-delimited JSON review files.
	Dir string `json:"dir"`
}

// ETL controls the normalization run and the target schema.
type ETL struct {
	// Workers is the number of chunk workers. Zero means the default (4).
	Workers int `json:"workers"`

	// RelationalDB and DocumentDB are the requested database names. The names
	// actually used may differ under the autoRename conflict policy.
	RelationalDB string `json:"relational_db"`
	DocumentDB   string `json:"document_db"`

	// OnConflict selects the provisioning behavior when a database of the
	// requested name already exists.
	OnConflict ConflictPolicy `json:"on_conflict"`

	// UserColumns and ItemColumns define the typed columns of the users and
	// items tables (beyond the implicit id primary key). Column values are
	// copied from the raw record field of the same name.
	UserColumns []ColumnSpec `json:"user_columns"`
	ItemColumns []ColumnSpec `json:"item_columns"`

	// ReviewFields lists the raw fields copied into each review document in
	// addition to id, reviewer_id, and item_id.
	ReviewFields []string `json:"review_fields"`
}

// ColumnSpec is one typed column of the users or items table. Type is a
// store-native column type declaration, e.g. "VARCHAR(255)".
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Stores carries connection settings for every backing store.
type Stores struct {
	Relational Relational `json:"relational"`
	Document   Document   `json:"document"`

	// Graph holds graph-store connection parameters. They are accepted and
	// validated for completeness but no component writes to the graph store.
	Graph Graph `json:"graph"`
}

// Relational selects and configures the users/items store.
type Relational struct {
	// Kind selects the backend: "mysql" (default), "postgres", "mssql",
	// or "sqlite".
	Kind string `json:"kind"`

	// DSN is the server-level connection string (no database selected);
	// the ETL creates and selects databases itself.
	DSN string `json:"dsn"`

	// Dir is used by the sqlite backend only: the directory in which
	// database files live.
	Dir string `json:"dir"`
}

// Document selects and configures the reviews store.
type Document struct {
	// Kind selects the backend: "mongo" (default) or "memory".
	Kind string `json:"kind"`

	// URI is the connection string, e.g. "mongodb://localhost:27017".
	URI string `json:"uri"`
}

// Graph holds graph database connection parameters (bolt endpoint).
type Graph struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Metrics configures the optional metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog", or "none"/empty.
	Backend string `json:"backend"`

	// Job labels all emitted metrics and names the Pushgateway job group.
	Job string `json:"job"`

	// PushgatewayURL is the Pushgateway base URL for the "pushgateway"
	// backend.
	PushgatewayURL string `json:"pushgateway_url"`

	// StatsdAddr is the DogStatsD address for the "datadog" backend.
	StatsdAddr string `json:"statsd_addr"`
}

// Default returns the configuration matching the historical defaults of the
// pipeline: four workers, "amz_reviews" databases, VARCHAR user/item columns,
// and the standard review detail fields.
func Default() Config {
	c := Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields in place. It is called after
// decoding so config files only need to state what differs from the defaults.
func (c *Config) ApplyDefaults() {
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.ETL.Workers == 0 {
		c.ETL.Workers = 4
	}
	if c.ETL.RelationalDB == "" {
		c.ETL.RelationalDB = "amz_reviews"
	}
	if c.ETL.DocumentDB == "" {
		c.ETL.DocumentDB = "amz_reviews"
	}
	if c.ETL.OnConflict == "" {
		c.ETL.OnConflict = ConflictFail
	}
	if len(c.ETL.UserColumns) == 0 {
		c.ETL.UserColumns = []ColumnSpec{
			{Name: "reviewerID", Type: "VARCHAR(255)"},
			{Name: "reviewerName", Type: "VARCHAR(255)"},
		}
	}
	if len(c.ETL.ItemColumns) == 0 {
		c.ETL.ItemColumns = []ColumnSpec{
			{Name: "asin", Type: "VARCHAR(255)"},
			{Name: "category", Type: "VARCHAR(255)"},
		}
	}
	if len(c.ETL.ReviewFields) == 0 {
		c.ETL.ReviewFields = []string{
			"reviewText", "helpful", "overall", "summary",
			"unixReviewTime", "reviewTime", "category",
		}
	}
	if c.Stores.Relational.Kind == "" {
		c.Stores.Relational.Kind = "mysql"
	}
	if c.Stores.Document.Kind == "" {
		c.Stores.Document.Kind = "mongo"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "reviews_etl"
	}
}

// Load reads and decodes a config file, applying defaults afterwards.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var c Config
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	c.ApplyDefaults()
	return c, nil
}

// ColumnNames returns the names of the given column specs, in order.
func ColumnNames(cols []ColumnSpec) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
