// This file adds a lightweight linter for Config values. It performs static
// checks over a decoded Config and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced to users but does
	// not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "stores.relational.kind").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Data.Dir) == "" {
		issues = append(issues, Issue{SeverityError, "data.dir", "input directory must not be empty"})
	}
	if c.ETL.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "etl.workers", "workers must not be negative"})
	}
	if strings.TrimSpace(c.ETL.RelationalDB) == "" {
		issues = append(issues, Issue{SeverityError, "etl.relational_db", "relational database name must not be empty"})
	}
	if strings.TrimSpace(c.ETL.DocumentDB) == "" {
		issues = append(issues, Issue{SeverityError, "etl.document_db", "document database name must not be empty"})
	}

	switch c.ETL.OnConflict {
	case ConflictFail, ConflictDrop, ConflictAutoRename:
	default:
		issues = append(issues, Issue{
			SeverityError, "etl.on_conflict",
			fmt.Sprintf("unknown conflict policy %q (want fail, drop, or autoRename)", c.ETL.OnConflict),
		})
	}

	issues = append(issues, validateColumns("etl.user_columns", c.ETL.UserColumns)...)
	issues = append(issues, validateColumns("etl.item_columns", c.ETL.ItemColumns)...)

	if strings.TrimSpace(c.Stores.Relational.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "stores.relational.kind", "relational store kind must not be empty"})
	}
	if c.Stores.Relational.Kind == "sqlite" {
		if strings.TrimSpace(c.Stores.Relational.Dir) == "" {
			issues = append(issues, Issue{SeverityError, "stores.relational.dir", "sqlite backend requires a database directory"})
		}
	} else if strings.TrimSpace(c.Stores.Relational.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "stores.relational.dsn", "relational store DSN must not be empty"})
	}

	if strings.TrimSpace(c.Stores.Document.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "stores.document.kind", "document store kind must not be empty"})
	}
	if c.Stores.Document.Kind == "mongo" && strings.TrimSpace(c.Stores.Document.URI) == "" {
		issues = append(issues, Issue{SeverityError, "stores.document.uri", "mongo backend requires a connection URI"})
	}

	switch c.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		issues = append(issues, Issue{
			SeverityWarning, "metrics.backend",
			fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", c.Metrics.Backend),
		})
	}

	return issues
}

func validateColumns(path string, cols []ColumnSpec) []Issue {
	var issues []Issue
	seen := map[string]bool{}
	for i, col := range cols {
		p := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(col.Name) == "" {
			issues = append(issues, Issue{SeverityError, p + ".name", "column name must not be empty"})
		}
		if strings.TrimSpace(col.Type) == "" {
			issues = append(issues, Issue{SeverityError, p + ".type", "column type must not be empty"})
		}
		if col.Name == "id" {
			issues = append(issues, Issue{SeverityError, p + ".name", `"id" is reserved for the surrogate primary key`})
		}
		if seen[col.Name] {
			issues = append(issues, Issue{SeverityError, p + ".name", fmt.Sprintf("duplicate column %q", col.Name)})
		}
		seen[col.Name] = true
	}
	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
