// Package dataerr defines the error taxonomy shared by the dataset loaders
// and the deck aggregation pipeline.
//
// Structural problems (missing dataset, broken metadata, missing columns)
// are returned as typed errors and abort a run. Per-record data-quality gaps
// are logged by the caller and never surface here.
package dataerr

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is matching.
var (
	ErrNotFound      = errors.New("not found")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrMissingColumn = errors.New("missing column")
)

// NotFoundError reports that a dataset has no backing source.
type NotFoundError struct {
	Dataset string // dataset identifier, e.g. "blb"
	Source  string // what was looked for (file path, URL, object key)
}

func (e *NotFoundError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("dataset %q not found", e.Dataset)
	}
	return fmt.Sprintf("dataset %q not found: %s", e.Dataset, e.Source)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DataIntegrityError reports a violated structural precondition, such as an
// empty type line or a duplicate card name.
type DataIntegrityError struct {
	Dataset string
	Reason  string
}

func (e *DataIntegrityError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("data integrity: %s", e.Reason)
	}
	return fmt.Sprintf("data integrity (%s): %s", e.Dataset, e.Reason)
}

// Is reports whether target is ErrDataIntegrity.
func (e *DataIntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

// MissingColumnError reports that a required column is absent from a table.
type MissingColumnError struct {
	Column string
	Table  string
}

func (e *MissingColumnError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("required column %q is missing", e.Column)
	}
	return fmt.Sprintf("required column %q is missing from %s", e.Column, e.Table)
}

// Is reports whether target is ErrMissingColumn.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// NotFound builds a NotFoundError.
func NotFound(dataset, source string) error {
	return &NotFoundError{Dataset: dataset, Source: source}
}

// Integrity builds a DataIntegrityError with a formatted reason.
func Integrity(dataset, format string, args ...interface{}) error {
	return &DataIntegrityError{Dataset: dataset, Reason: fmt.Sprintf(format, args...)}
}

// MissingColumn builds a MissingColumnError.
func MissingColumn(table, column string) error {
	return &MissingColumnError{Table: table, Column: column}
}

// IsNotFound reports whether any error in err's chain is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
