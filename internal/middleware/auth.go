package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"orgie/internal/domain"
	"orgie/internal/service"
	"orgie/pkg/errors"
	"orgie/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// PrincipalContextKey is the key for the authenticated caller in context
	PrincipalContextKey ContextKey = "principal"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// AccessTokenCookie carries the access token for browser clients
const AccessTokenCookie = "accessToken"

// PrincipalFrom returns the caller stored by Auth or OptionalAuth
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(domain.Principal)
	return p, ok
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// RequestIDFrom returns the id assigned by RequestID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// extractToken reads the bearer header first, then the access token cookie.
// ok is false when a header is present but malformed.
func extractToken(r *http.Request) (token string, ok bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", false
		}
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), true
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value, true
	}
	return "", true
}

// Auth creates an authentication middleware
func Auth(validator service.TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), log)
				return
			}
			if token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authentication required"), log)
				return
			}

			principal, err := validator.ValidateAccessToken(r.Context(), token)
			if err != nil {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid or expired token"), log)
				return
			}

			log.WithField("user_id", principal.ID).Debug("User authenticated successfully")
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

// OptionalAuth validates a token when one is provided, otherwise continues
// without a principal
func OptionalAuth(validator service.TokenValidator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), log)
				return
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := validator.ValidateAccessToken(r.Context(), token)
			if err != nil {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid or expired token"), log)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *principal)))
		})
	}
}

// RequestID creates a middleware that adds a unique request ID to each request.
// An incoming X-Request-ID is kept.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	log.WithFields(map[string]interface{}{
		"path":  r.URL.Path,
		"error": appErr.Message,
	}).Debug("Request rejected")

	response := errors.NewErrorResponse(appErr, RequestIDFrom(r.Context()), time.Now().UTC().Format(time.RFC3339))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(response)
}
