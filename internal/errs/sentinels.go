// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication. Unknown identifier and
	// wrong password both map here.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated identity that does not own the record.
	ErrForbidden = errors.New("access denied")

	// ErrAlreadyExists indicates a unique constraint violation (username, email or title taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidID indicates a malformed record identifier.
	ErrInvalidID = errors.New("invalid id")

	// ErrStoreUnavailable indicates the backing store could not serve the request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err carries a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
