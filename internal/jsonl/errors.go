package jsonl

import (
	"errors"
	"fmt"
)

var errNotObject = errors.New("expected a JSON object")

// MalformedInputError reports input that is not valid JSON, or not the JSON
// shape the reader expects.
type MalformedInputError struct {
	// Source is the file the input came from.
	Source string

	// Line is the 1-based line number, or 0 for whole-file documents.
	Line int

	// Err is the underlying decode error.
	Err error
}

// Error implements the error interface.
func (e *MalformedInputError) Error() string {
	if e.Line == 0 && e.Source != "" {
		return fmt.Sprintf("invalid JSON in %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// SchemaNotFoundError reports a referenced schema file that does not exist.
type SchemaNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema not found: %s", e.Path)
}

// IsMalformedInput returns true if err is or wraps a *MalformedInputError.
func IsMalformedInput(err error) bool {
	var mi *MalformedInputError
	return errors.As(err, &mi)
}

// IsSchemaNotFound returns true if err is or wraps a *SchemaNotFoundError.
func IsSchemaNotFound(err error) bool {
	var snf *SchemaNotFoundError
	return errors.As(err, &snf)
}
