package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// MissingFieldError reports required fields absent from an input record.
type MissingFieldError struct {
	// Entity names the record kind ("device", "firmware", "eval case", ...).
	Entity string

	// Key identifies the record when enough of it is present. Optional.
	Key string

	// Fields lists the absent field names in declaration order.
	Fields []string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = "'" + f + "'"
	}
	subject := e.Entity
	if e.Key != "" {
		subject = fmt.Sprintf("%s %q", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s: missing %s", subject, strings.Join(quoted, ", "))
}

// UnresolvedReferenceError reports a compatibility record whose device or
// firmware release does not exist.
type UnresolvedReferenceError struct {
	// Kind is "device" or "firmware".
	Kind string

	// Ref is the natural key that failed to resolve.
	Ref string

	// Record is the offending input.
	Record CompatibilityRecord
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unknown %s %q in compatibility mapping %s", e.Kind, e.Ref, e.Record)
}

// IsMissingField returns true if err is or wraps a *MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}

// IsUnresolvedReference returns true if err is or wraps an *UnresolvedReferenceError.
func IsUnresolvedReference(err error) bool {
	var ur *UnresolvedReferenceError
	return errors.As(err, &ur)
}
