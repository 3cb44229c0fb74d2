// Package errors provides standardized API error types.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error returned to the client.
// Only Message reaches the response body; Code is kept for logs and metrics.
type APIError struct {
	Code       string `json:"-"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
	}
}

// Standard error definitions
var (
	// ErrBadRequest is returned when the request body is missing or malformed.
	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request format.",
		StatusCode: http.StatusBadRequest,
	}

	// ErrUnauthorized is returned when authentication is required but missing or invalid.
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "User not authenticated",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden is returned when the account is not on the allow list.
	ErrForbidden = &APIError{
		Code:       "forbidden",
		Message:    "Account not authorized.",
		StatusCode: http.StatusForbidden,
	}

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	// ErrRateLimited is returned when rate limits are exceeded.
	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	// ErrInternal is returned for unexpected server errors.
	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred.",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrDatabaseUnavailable is returned when the document store was never initialized.
	ErrDatabaseUnavailable = &APIError{
		Code:       "database_unavailable",
		Message:    "Database unavailable.",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrServiceUnavailable is returned when a dependent service is unavailable.
	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Database service is not available.",
		StatusCode: http.StatusServiceUnavailable,
	}

	// ErrAssistantFailure is returned when the AI pipeline fails after authorization.
	ErrAssistantFailure = &APIError{
		Code:       "upstream_failure",
		Message:    "An unexpected error occurred with the AI assistant.",
		StatusCode: http.StatusInternalServerError,
	}
)

// NewValidationError creates a 400 error for a specific field.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:       "validation_error",
		Message:    fmt.Sprintf("%s: %s", field, message),
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error with a custom message.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:       "not_found",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a 500 error carrying a user-facing message.
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:       "internal_error",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// IsAPIError checks if an error is, or wraps, an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// AsAPIError converts an error to an APIError if possible.
// Returns ErrInternal if the error is not an APIError.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
