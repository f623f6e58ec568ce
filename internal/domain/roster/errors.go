package roster

import (
	"errors"
	"fmt"
)

// ErrEmptySource means the source returned no data rows, or only a header row.
var ErrEmptySource = errors.New("roster source is empty")

// ErrNotLoaded means a write was attempted before any successful load.
var ErrNotLoaded = errors.New("roster has not been loaded")

// DataSourceError wraps a failure to reach or authenticate against the roster source.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("roster source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// UnknownFieldError is returned when a field name is not one of the headers.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// NotFoundError is returned when no record carries the requested identity value.
type NotFoundError struct {
	Field string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record with %s = %q", e.Field, e.Value)
}

// MalformedRowError reports a row whose width differs from the header row.
// Row is the 1-based sheet row, or 0 for a record that is not yet stored.
type MalformedRowError struct {
	Row  int
	Got  int
	Want int
}

func (e *MalformedRowError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("record has %d values, want %d", e.Got, e.Want)
	}
	return fmt.Sprintf("row %d has %d values, want %d", e.Row, e.Got, e.Want)
}

// SchemaError reports an unusable header row.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("header %q: %s", e.Field, e.Reason)
}
