package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeCorruptFile ErrorType = "CORRUPT_FILE"
	ErrTypeRead        ErrorType = "READ_ERROR"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeConfig      ErrorType = "CONFIG"
)

// Context keys attached to AppError values.
const (
	ContextMissingColumns = "missing_columns"
	ContextField          = "field"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// CorruptFileMessage is shown when an upload is not a readable spreadsheet.
const CorruptFileMessage = "The file is not a valid Excel file or is corrupted."

// NewCorruptFileError creates an error for uploads that no parser recognises
func NewCorruptFileError(cause error) *AppError {
	return NewAppError(ErrTypeCorruptFile, CorruptFileMessage, cause)
}

// NewReadError creates an error for unexpected parser failures. The message
// carries the underlying failure so the user can act on it.
func NewReadError(cause error) *AppError {
	msg := "An error occurred while reading the file"
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}
	return NewAppError(ErrTypeRead, msg, cause)
}

// NewMissingColumnsError creates a validation error naming the absent columns
func NewMissingColumnsError(missing []string) *AppError {
	quoted := make([]string, len(missing))
	for i, c := range missing {
		quoted[i] = fmt.Sprintf("'%s'", c)
	}
	msg := fmt.Sprintf("The dataset does not contain the necessary columns: %s", strings.Join(quoted, ", "))
	return NewAppError(ErrTypeValidation, msg, nil).
		WithContext(ContextMissingColumns, append([]string(nil), missing...))
}

// NewAppValidationError creates a validation error for a single field
func NewAppValidationError(field, message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil).WithContext(ContextField, field)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the AppError type found in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// MissingColumns extracts the missing column list from a validation error.
func MissingColumns(err error) []string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	cols, _ := appErr.Context[ContextMissingColumns].([]string)
	return cols
}

// UserMessage returns the message safe to show to the person who uploaded
// the file. Unknown errors get a generic message.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred. Please try again."
}
