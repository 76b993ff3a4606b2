package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of error for handling
type ErrorCategory string

const (
	// CategoryConfiguration covers not-authenticated, SDK-not-authorized and
	// reader-not-connected failures: fail fast, no retry.
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryTransport covers network failures, malformed responses and
	// missing identifiers from remote services.
	CategoryTransport ErrorCategory = "transport"
	// CategoryData covers local data problems such as unparseable amounts;
	// isolated to the affected entry, never aborts a batch.
	CategoryData ErrorCategory = "data"
	// CategoryTerminal covers definitive payment failures/cancels reported
	// by the card reader.
	CategoryTerminal ErrorCategory = "terminal"
	// CategoryOffline covers offline-queue processing failures, reported as
	// non-fatal warnings distinct from any transaction's own completion.
	CategoryOffline ErrorCategory = "offline"
)

// EngineError is an error with handling context attached
type EngineError struct {
	Code        string
	Message     string
	Category    ErrorCategory
	IsRetriable bool
	Details     map[string]interface{}
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates a new engine error
func New(code, message string, category ErrorCategory, retriable bool) *EngineError {
	return &EngineError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Details:     make(map[string]interface{}),
	}
}

// CategoryOf returns the category of err, or empty when err carries none.
func CategoryOf(err error) ErrorCategory {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ""
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
