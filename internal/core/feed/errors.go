package feed

import (
	"errors"
	"fmt"
)

// Sentinel errors for feed operations
var (
	// ErrUpstream is returned when a raw page fetch fails. The whole
	// GetFeed call fails - no partial page is returned. Retrying with the
	// same cursor is safe (see PushCollection's replace rule).
	ErrUpstream = errors.New("upstream feed fetch failed")

	// ErrInvalidCursor is returned when a resume cursor is malformed
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrUnauthorized is returned when no viewer DID is supplied
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
