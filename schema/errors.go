package schema

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a rule or insight id does not exist.
var ErrNotFound = errors.New("not found")

// ErrSnapshotUnavailable is returned when the data provider fails during generation.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// ValidationError reports a malformed rule draft. Field is a dotted path
// such as "parameters.factor".
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
