package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine codes carried in the error envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"
)

// FieldError describes a single violated validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// AppError is an operational error: anticipated, classified and safe to
// describe to a client. Everything the service deliberately raises is an
// AppError; anything else is treated as internal at the boundary.
type AppError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewValidation builds a 400 error carrying one detail record per violated
// rule, in schema declaration order.
func NewValidation(details []FieldError) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "invalid input data",
		Details: details,
	}
}

// NewNotFound builds a 404 error carrying the missing resource name.
func NewNotFound(resource string) *AppError {
	return &AppError{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: map[string]string{"resource": resource},
	}
}

// NewConflict builds a 409 error carrying the offending field name.
func NewConflict(field string) *AppError {
	return &AppError{
		Status:  http.StatusConflict,
		Code:    CodeConflict,
		Message: "data conflict",
		Details: map[string]string{"field": field},
	}
}

// NewUnauthorized is reserved; no current operation raises it.
func NewUnauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewForbidden is reserved; no current operation raises it.
func NewForbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return &AppError{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

// NewInternal wraps an unanticipated failure. The cause is kept for logging
// and is never serialized outside development mode.
func NewInternal(cause error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
		cause:   cause,
	}
}
