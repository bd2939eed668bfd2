package handler

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"orgie/internal/domain"
	"orgie/internal/middleware"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/logger"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps err to its AppError status. Anything else is a 500.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := apperrors.AsAppError(err)
	entry := log.WithFields(map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"type":   string(appErr.Type),
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithField("message", appErr.Message).Debug("Request rejected")
	}

	requestID := middleware.RequestIDFrom(r.Context())
	respondJSON(w, appErr.StatusCode, apperrors.NewErrorResponse(appErr, requestID, time.Now().UTC().Format(time.RFC3339)))
}

// decodeJSON reads the request body into dst. With optional set an empty body
// leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return apperrors.NewValidationError("Invalid request body", map[string]interface{}{"body": err.Error()})
	}
	return nil
}

// principal returns the caller placed by the auth middleware
func principal(r *http.Request) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return domain.Principal{}, apperrors.NewAuthenticationError("Authentication required")
	}
	return p, nil
}

func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}

// respondCached writes data with an ETag and answers 304 when the client
// already holds it
func respondCached(w http.ResponseWriter, r *http.Request, data interface{}, maxAge time.Duration) {
	etag := generateETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds())))
	respondJSON(w, http.StatusOK, data)
}
