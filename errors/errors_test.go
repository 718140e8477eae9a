package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapf(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
}

func TestIs(t *testing.T) {
	err1 := New("error 1")
	err2 := New("error 2")
	wrapped := Wrap(err1, "wrapped")

	assert.True(t, Is(wrapped, err1))
	assert.False(t, Is(wrapped, err2))
	assert.False(t, Is(nil, err1))
}

type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}

func TestAs(t *testing.T) {
	original := &customError{msg: "custom"}
	wrapped := Wrap(original, "wrapped")

	var target *customError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, "custom", target.msg)
}

func TestSentinelPredicates(t *testing.T) {
	notFound := Wrap(ErrNotFound, "domain companies")
	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsNotFoundError(New("something else")))

	ambiguous := Wrap(ErrAmbiguousMatch, "2 entities matched")
	assert.True(t, IsAmbiguousMatchError(ambiguous))
	assert.False(t, IsAmbiguousMatchError(notFound))

	conflict := Wrap(ErrConflict, "entity appears to already exist")
	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsConflictError(ambiguous))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(Wrap(ErrNestedAttributes, "key a")))
	assert.True(t, IsValidationError(Wrap(ErrReservedKey, "key uuid")))
	assert.True(t, IsValidationError(Wrap(ErrMissingParameter, "threshold")))
	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(nil))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("domain %q not found", "companies")
	assert.True(t, Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), `domain "companies" not found`)
}

func TestNewConflictError(t *testing.T) {
	err := NewConflictError("duplicate attributes in domain %q", "companies")
	assert.True(t, Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "companies")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	// Format with stack trace
	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithStack(nil))
}

func ExampleWrap() {
	baseErr := New("connection failed")
	err := Wrap(baseErr, "failed to open database")
	fmt.Println(err)
	// Output: failed to open database: connection failed
}
