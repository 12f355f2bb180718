package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError independently of its HTTP status code
type Kind string

const (
	KindValidation          Kind = "validation"
	KindStateConflict       Kind = "state_conflict"
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindInsufficientPayment Kind = "insufficient_payment"
	KindInfrastructure      Kind = "infrastructure"
	KindInternal            Kind = "internal"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int          `json:"code"`
	Kind      Kind         `json:"kind"`
	Message   string       `json:"message"`
	Errors    []FieldError `json:"errors,omitempty"`
	Details   interface{}  `json:"details,omitempty"`
	Retryable bool         `json:"retryable,omitempty"`
	cause     error
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Common errors
var (
	ErrUnauthorized = &AppError{Code: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Unauthorized"}
	ErrForbidden    = &AppError{Code: http.StatusForbidden, Kind: KindForbidden, Message: "Forbidden"}
	ErrInternal     = &AppError{Code: http.StatusInternalServerError, Kind: KindInternal, Message: "Internal server error"}
)

// NewAppError creates a new application error
func NewAppError(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying field errors
func NewValidationError(message string, fieldErrors ...FieldError) *AppError {
	if message == "" {
		message = "Validation failed"
	}
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Kind:    KindValidation,
		Message: message,
		Errors:  fieldErrors,
	}
}

// NewFieldError is a shortcut for a validation error on a single field
func NewFieldError(field, message string) *AppError {
	return NewValidationError("Validation failed", FieldError{Field: field, Message: message})
}

// NewNotFoundError creates a not found error with a custom message
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: resource + " not found",
	}
}

// NewStateConflictError reports a transition that is not legal for the current state
func NewStateConflictError(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindStateConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInsufficientStockError reports the items that could not be substracted
func NewInsufficientStockError(details interface{}) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindInsufficientStock,
		Message: "Insufficient stock",
		Details: details,
	}
}

// NewInsufficientPaymentError reports an outstanding balance after reconciliation
func NewInsufficientPaymentError(details interface{}) *AppError {
	return &AppError{
		Code:    http.StatusPaymentRequired,
		Kind:    KindInsufficientPayment,
		Message: "Received amount is lower than the amount owed",
		Details: details,
	}
}

// NewInfrastructureError wraps a failure of an external dependency
func NewInfrastructureError(message string, cause error) *AppError {
	return &AppError{
		Code:      http.StatusServiceUnavailable,
		Kind:      KindInfrastructure,
		Message:   message,
		Retryable: true,
		cause:     cause,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// GetAppError converts an error to AppError if possible.
// Unknown errors become a generic internal error so raw messages never reach clients.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: ErrInternal.Message,
		cause:   err,
	}
}
