package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTable indicates the input has no header row.
	ErrEmptyTable = errors.New("importer: table has no header row")
	// ErrUnknownKind indicates an unsupported import kind.
	ErrUnknownKind = errors.New("importer: unknown import kind")
	// ErrNoDate indicates no date could be read or inferred for a row.
	ErrNoDate = errors.New("importer: no date found")
	// ErrMissingLength indicates a blank meeting length on an attendance row.
	ErrMissingLength = errors.New("importer: meeting length is required")
	// ErrInvalidLength indicates the meeting length is not a non-negative number.
	ErrInvalidLength = errors.New("importer: invalid meeting length")
	// ErrInvalidHours indicates a user cell holds neither hours nor the excuse marker.
	ErrInvalidHours = errors.New("importer: invalid hours value")
	// ErrHoursExceedLength indicates attended hours above the meeting length.
	ErrHoursExceedLength = errors.New("importer: attended hours exceed meeting length")
	// ErrOutreachNotExcusable indicates an excuse marker on an outreach sheet.
	ErrOutreachNotExcusable = errors.New("importer: outreach events cannot be excused")
	// ErrDuplicateImport flags a table whose checksum matches an earlier import.
	ErrDuplicateImport = errors.New("importer: table was imported before")
)

// RowError is a non-fatal diagnostic for one row or cell. Line is the
// 1-based line of the source table; Column is 0-based and -1 for row-level
// problems.
type RowError struct {
	Line   int
	Column int
	User   string
	Value  string
	Err    error
}

// Error implements the error interface.
func (e *RowError) Error() string {
	switch {
	case e.Column < 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.User != "":
		return fmt.Sprintf("line %d, column %d (%s): %v: %q", e.Line, e.Column+1, e.User, e.Err, e.Value)
	default:
		return fmt.Sprintf("line %d, column %d: %v: %q", e.Line, e.Column+1, e.Err, e.Value)
	}
}

// Unwrap exposes the underlying sentinel.
func (e *RowError) Unwrap() error {
	return e.Err
}
