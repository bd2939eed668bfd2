package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeAuthentication   ErrorType = "authentication"
	ErrorTypeAuthorization    ErrorType = "authorization"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeInvalidState     ErrorType = "invalid_state"
	ErrorTypeInvalidRange     ErrorType = "invalid_range"
	ErrorTypeCapacityExceeded ErrorType = "capacity_exceeded"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeInternal         ErrorType = "internal"
	ErrorTypeRateLimit        ErrorType = "rate_limit"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewAuthorizationError is returned when an authenticated principal lacks
// owner, administrator, self or patron privilege for an operation.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInvalidStateError reports an operation that the target's current shape
// does not allow, such as generating terms for a one-time event.
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidRangeError creates a new invalid date range error
func NewInvalidRangeError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidRange,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewCapacityExceededError creates a new capacity error
func NewCapacityExceededError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeCapacityExceeded,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// AsAppError unwraps err into an *AppError. Errors that carry no AppError
// are reported as internal errors.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("Internal server error", err)
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
	// Message mirrors Error.Message for clients that read a flat body
	Message string `json:"message"`
}

// NewErrorResponse builds the wire body for appErr
func NewErrorResponse(appErr *AppError, requestID, timestamp string) *ErrorResponse {
	response := &ErrorResponse{Message: appErr.Message}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = requestID
	response.Error.Timestamp = timestamp
	return response
}
