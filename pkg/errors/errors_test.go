package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		typ    ErrorType
	}{
		{"not found", NewNotFoundError("Event not found"), http.StatusNotFound, ErrorTypeNotFound},
		{"authorization", NewAuthorizationError("User not authorized"), http.StatusForbidden, ErrorTypeAuthorization},
		{"authentication", NewAuthenticationError("Not authorized, no token"), http.StatusUnauthorized, ErrorTypeAuthentication},
		{"invalid state", NewInvalidStateError("Event is not recurring or missing weekDays"), http.StatusBadRequest, ErrorTypeInvalidState},
		{"invalid range", NewInvalidRangeError("End date must be in the past"), http.StatusBadRequest, ErrorTypeInvalidRange},
		{"capacity", NewCapacityExceededError("Term is full"), http.StatusBadRequest, ErrorTypeCapacityExceeded},
		{"conflict", NewConflictError("User already exists"), http.StatusConflict, ErrorTypeConflict},
		{"rate limit", NewRateLimitError("Too many requests"), http.StatusTooManyRequests, ErrorTypeRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.typ, tt.err.Type)
		})
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("toggle failed: %w", NewCapacityExceededError("Term is full"))

	appErr := AsAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeCapacityExceeded, appErr.Type)
	assert.True(t, IsType(wrapped, ErrorTypeCapacityExceeded))
	assert.False(t, IsType(wrapped, ErrorTypeNotFound))

	plain := AsAppError(fmt.Errorf("connection reset"))
	assert.Equal(t, ErrorTypeInternal, plain.Type)
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode)

	assert.Nil(t, AsAppError(nil))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewInvalidRangeError("End date must be in the past"), "req-1", "2024-01-01T00:00:00Z")

	assert.Equal(t, "End date must be in the past", resp.Message)
	assert.Equal(t, ErrorTypeInvalidRange, resp.Error.Type)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
