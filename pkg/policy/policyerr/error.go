// Package policyerr provides rich errors for policy parsing with
// source locations and suggested fixes.
package policyerr

import (
	"errors"
	"fmt"
	"strings"

	"tollgate-hq/tollgate/pkg/policy/ast"
)

// Kind categorizes a parse failure.
type Kind string

const (
	// KindSyntax indicates malformed YAML structure.
	KindSyntax Kind = "syntax"

	// KindUnknownPolicyType indicates an unrecognized "type" discriminator.
	KindUnknownPolicyType Kind = "unknown_policy_type"

	// KindMissingField indicates a required field is absent for a policy kind.
	KindMissingField Kind = "missing_field"

	// KindInvalidValue indicates a field value outside its domain
	// (bad subject field name, zero window, negative amount).
	KindInvalidValue Kind = "invalid_value"

	// KindEmptyPolicySet indicates a document with zero policies.
	KindEmptyPolicySet Kind = "empty_policy_set"

	// KindIO indicates a file read failure.
	KindIO Kind = "io"
)

// Error is a parse error with location context and an optional
// suggested fix.
type Error struct {
	Kind       Kind
	Message    string
	Location   ast.Location
	Suggestion string
}

// Error implements the error interface with a multi-line, human-readable
// rendering: kind, message, location, and suggestion.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Kind, e.Message)
	if e.Location.IsValid() {
		fmt.Fprintf(&sb, "\n  --> %s", e.Location.String())
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "\n  = suggestion: %s", e.Suggestion)
	}
	return sb.String()
}

// New creates an Error with the given kind, message, and location.
func New(kind Kind, message string, loc ast.Location) *Error {
	return &Error{Kind: kind, Message: message, Location: loc}
}

// WithSuggestion attaches a suggested fix and returns the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// IsKind reports whether err is (or wraps) a policy Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	var list *ErrorList
	if errors.As(err, &list) {
		return list.HasKind(kind)
	}
	return false
}

// ErrorList accumulates multiple parse errors so a single pass can
// report every problem in a document instead of stopping at the first.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates an empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// HasErrors returns true if the list is non-empty.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// HasKind returns true if any accumulated error has the given kind.
func (el *ErrorList) HasKind(kind Kind) bool {
	for _, e := range el.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Error implements the error interface, rendering every accumulated error.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d error(s):\n", len(el.Errors))
	for i, e := range el.Errors {
		fmt.Fprintf(&sb, "\nerror %d:\n%s\n", i+1, e.Error())
	}
	return sb.String()
}

// ToError returns nil when the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}
