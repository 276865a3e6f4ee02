package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure the core reports on purpose matches exactly one of
// these with errors.Is; anything else is an unknown error and is passed through.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a domain failure with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError returns an *Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike, so callers cannot tell which one happened.
	ErrInvalidCredentials = NewError(ErrUnauthorized, "invalid credentials")

	ErrEmailTaken       = NewError(ErrConflict, "email already registered")
	ErrInvalidRole      = NewError(ErrBadRequest, "role must be one of ADMIN, EMPLOYEE")
	ErrCustomerNotFound = NewError(ErrNotFound, "customer not found")
	ErrInvalidLimit     = NewError(ErrBadRequest, "limit must be greater than 0")
	ErrInvalidPage      = NewError(ErrBadRequest, "page must be greater than 0")
	ErrPageOutOfRange   = NewError(ErrBadRequest, "page is out of range")
	ErrAccessForbidden  = NewError(ErrForbidden, "access forbidden")
)

// CustomerConflict builds the conflict reported when a customer write collides
// with an existing customer on a unique contact field.
func CustomerConflict(field string) *Error {
	if field == "" {
		return NewError(ErrConflict, "customer with given email or phone already exists")
	}
	return NewError(ErrConflict, fmt.Sprintf("customer with given %s already exists", field))
}

// UniqueViolationError is returned by stores when a write breaks a uniqueness
// constraint. Field is the offending column when the store can tell.
type UniqueViolationError struct {
	Entity string
	Field  string
	Err    error
}

func (e *UniqueViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: unique constraint violation", e.Entity)
	}
	return fmt.Sprintf("%s: unique constraint violation on %s", e.Entity, e.Field)
}

func (e *UniqueViolationError) Unwrap() error { return e.Err }

// AsUniqueViolation reports whether err carries a UniqueViolationError.
func AsUniqueViolation(err error) (*UniqueViolationError, bool) {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv, true
	}
	return nil, false
}
