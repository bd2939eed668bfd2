package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orgie/internal/middleware"
	"orgie/internal/service/auth"
	"orgie/pkg/logger"
)

// RefreshTokenCookie carries the refresh token, scoped to the auth routes
const RefreshTokenCookie = "refreshToken"

const refreshCookiePath = "/api/auth"

// AuthHandler handles authentication and profile requests
type AuthHandler struct {
	auth         *auth.Service
	logger       *logger.Logger
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, cookieSecure bool, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &AuthHandler{auth: authService, logger: log, cookieSecure: cookieSecure}
}

// RegisterRoutes mounts /auth and /users. limit wraps the credential
// endpoints, authMw the ones that need a session.
func (h *AuthHandler) RegisterRoutes(r chi.Router, authMw, limit func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
		})
		r.Post("/logout", h.Logout)
		r.With(authMw).Get("/me", h.Me)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(authMw)
		r.Get("/search", h.SearchUsers)
		r.Put("/profile", h.UpdateProfile)
	})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	session, err := h.auth.Register(r.Context(), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	h.setSessionCookies(w, session)
	respondJSON(w, http.StatusCreated, session)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	session, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	h.setSessionCookies(w, session)
	respondJSON(w, http.StatusOK, session)
}

// Refresh handles POST /api/auth/refresh using the refresh cookie
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	session, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.clearSessionCookies(w)
		respondError(w, r, err, h.logger)
		return
	}
	h.setSessionCookies(w, session)
	respondJSON(w, http.StatusOK, session)
}

// Logout handles POST /api/auth/logout. It succeeds without a session and
// always clears the cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token != "" {
		if userID, ok := h.refreshOwner(r, token); ok {
			if err := h.auth.Logout(r.Context(), userID); err != nil {
				respondError(w, r, err, h.logger)
				return
			}
		}
	}
	h.clearSessionCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// refreshOwner resolves the user of a refresh token without rotating it
func (h *AuthHandler) refreshOwner(r *http.Request, token string) (string, bool) {
	id, err := h.auth.RefreshTokenOwner(r.Context(), token)
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	me, err := h.auth.Me(r.Context(), p.ID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": me})
}

// SearchUsers handles GET /api/users/search?q=
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// UpdateProfile handles PUT /api/users/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req auth.ProfileInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	user, err := h.auth.UpdateProfile(r.Context(), p.ID, req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     refreshCookiePath,
		Expires:  session.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		middleware.AccessTokenCookie: "/",
		RefreshTokenCookie:           refreshCookiePath,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
