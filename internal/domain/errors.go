package domain

import (
	"fmt"
)

// EngineError represents a standardized error surfaced to callers of the engine service.
type EngineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
)

// NewEngineError creates a new EngineError
func NewEngineError(code, message, details string, cause error) *EngineError {
	return &EngineError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     cause,
	}
}

// ValidationError represents an input rejected before any banding occurs.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
