package database

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an absent day, week or setting. It is never used for a
// failed operation.
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before any state changes.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// PersistenceError wraps I/O failures of a store backend.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ImportError describes one CSV row that was skipped.
type ImportError struct {
	Row    int
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ConsistencyError reports a stored total that disagreed with its buckets.
// The buckets always win.
type ConsistencyError struct {
	Date     string
	Stored   int
	Computed int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: stored total %d, buckets sum to %d", e.Date, e.Stored, e.Computed)
}
