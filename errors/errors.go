// Package errors provides error handling for crosswalk.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the resolution engine.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource (domain, entity, match)
	// does not exist
	ErrNotFound = New("not found")

	// ErrAmbiguousMatch indicates a query matched more than one entity where
	// exactly one was required; callers should add blocking attributes
	ErrAmbiguousMatch = New("ambiguous match")

	// ErrConflict indicates a uniqueness violation: the (domain, attributes)
	// pair already exists
	ErrConflict = New("resource conflict")

	// ErrNoCandidates indicates a fuzzy query had no candidates to score
	ErrNoCandidates = New("no candidates")

	// ErrUnknownScorer indicates a scorer name with no registered strategy
	ErrUnknownScorer = New("unknown scorer")

	// ErrCycleDetected indicates an alias or supersession chain exceeded its
	// hop budget; the graph is inconsistent
	ErrCycleDetected = New("cycle detected")

	// ErrNestedAttributes indicates an attribute value was itself a mapping
	ErrNestedAttributes = New("nested attributes are not allowed")

	// ErrReservedKey indicates a reserved key appeared in an attribute payload
	ErrReservedKey = New("reserved key in attributes")

	// ErrMissingParameter indicates a required request parameter was omitted
	ErrMissingParameter = New("missing required parameter")

	// ErrUnauthorized indicates the request lacks a valid API token
	ErrUnauthorized = New("unauthorized")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsAmbiguousMatchError checks if an error is or wraps ErrAmbiguousMatch
func IsAmbiguousMatchError(err error) bool {
	return err != nil && Is(err, ErrAmbiguousMatch)
}

// IsConflictError checks if an error is or wraps ErrConflict
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsValidationError checks if an error is a payload validation failure
func IsValidationError(err error) bool {
	return err != nil && IsAny(err, ErrNestedAttributes, ErrReservedKey, ErrMissingParameter)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewConflictError creates a conflict error with a formatted message
func NewConflictError(format string, args ...interface{}) error {
	return Wrap(ErrConflict, Newf(format, args...).Error())
}
