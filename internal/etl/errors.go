package etl

import "fmt"

// PartialCommitError reports that the relational commit succeeded but the
// document-side insert failed, leaving the two stores inconsistent. The
// committed relational database is named so an operator can clean it up.
type PartialCommitError struct {
	RelationalDB string
	Err          error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("reviews not committed; relational database %q was already written: %v", e.RelationalDB, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
