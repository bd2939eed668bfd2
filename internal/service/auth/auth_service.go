package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"orgie/internal/domain"
	"orgie/internal/repository"
	"orgie/internal/service"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/logger"
)

const (
	bcryptCost  = 10
	searchLimit = 10
	issuer      = "orgie"

	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// Config holds token signing settings
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims are carried by both access and refresh tokens
type Claims struct {
	Role domain.UserRole `json:"role"`
	Type string          `json:"typ"`
	jwt.RegisteredClaims
}

// Service implements registration, login, token handling and profiles
type Service struct {
	users  repository.UserRepository
	cfg    Config
	logger *logger.Logger
}

// NewService creates a new auth service
func NewService(users repository.UserRepository, cfg Config, log *logger.Logger) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{users: users, cfg: cfg, logger: log}
}

var _ service.TokenValidator = (*Service)(nil)

// Session is returned after register, login and refresh
type Session struct {
	User             domain.UserSummary `json:"user"`
	AccessToken      string             `json:"accessToken"`
	RefreshToken     string             `json:"-"`
	AccessExpiresAt  time.Time          `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time          `json:"-"`
}

// RegisterInput is the sign up payload. Email is optional.
type RegisterInput struct {
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	Nickname  string `json:"nickname" validate:"max=30"`
}

// LoginInput is the sign in payload
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is the partial profile update payload
type ProfileInput struct {
	FirstName      *string `json:"firstName" validate:"omitempty,max=50"`
	LastName       *string `json:"lastName" validate:"omitempty,max=50"`
	Nickname       *string `json:"nickname" validate:"omitempty,max=30"`
	PreferNickname *bool   `json:"preferNickname"`
}

// ValidatePassword requires at least 8 characters, an uppercase letter and a
// digit
func ValidatePassword(password string) error {
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len([]rune(password)) < 8 || !upper || !digit {
		return apperrors.NewValidationError(
			"Password must be at least 8 characters long and contain an uppercase letter and a digit",
			map[string]interface{}{"password": "weak"})
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a PLAIN user and signs them in
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := service.ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Nickname:     strings.TrimSpace(in.Nickname),
		Role:         domain.RolePlain,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Email != "" {
		email := in.Email
		user.Email = &email
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflictError("Email is already registered")
		}
		return nil, apperrors.NewInternalError("Failed to create user", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return s.issue(ctx, user)
}

// Login checks credentials and starts a session
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := service.ValidateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load user", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, apperrors.NewAuthenticationError("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.WithField("user_id", user.ID).Debug("Password mismatch")
		return nil, apperrors.NewAuthenticationError("Invalid email or password")
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return s.issue(ctx, user)
}

// Refresh exchanges a valid refresh token for a new token pair. The old
// refresh token stops working.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.NewAuthenticationError("Refresh token is required")
	}
	claims, err := parseToken(refreshToken, s.cfg.RefreshSecret, tokenRefresh)
	if err != nil {
		s.logger.WithError(err).Debug("Refresh token rejected")
		return nil, apperrors.NewAuthenticationError("Invalid refresh token")
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load user", err)
	}
	if user == nil || user.ID != claims.Subject {
		return nil, apperrors.NewAuthenticationError("Invalid refresh token")
	}
	return s.issue(ctx, user)
}

// RefreshTokenOwner returns the id of the user holding refreshToken, or ""
// when the token is invalid or no longer stored
func (s *Service) RefreshTokenOwner(ctx context.Context, refreshToken string) (string, error) {
	claims, err := parseToken(refreshToken, s.cfg.RefreshSecret, tokenRefresh)
	if err != nil {
		return "", nil
	}
	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", apperrors.NewInternalError("Failed to load user", err)
	}
	if user == nil || user.ID != claims.Subject {
		return "", nil
	}
	return user.ID, nil
}

// Logout revokes the stored refresh token
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return apperrors.NewInternalError("Failed to log out", err)
	}
	s.logger.WithField("user_id", userID).Info("User logged out")
	return nil
}

// Me returns the caller's profile
func (s *Service) Me(ctx context.Context, userID string) (*domain.UserSummary, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// ValidateAccessToken verifies signature and expiry of an access token
func (s *Service) ValidateAccessToken(_ context.Context, token string) (*domain.Principal, error) {
	claims, err := parseToken(token, s.cfg.AccessSecret, tokenAccess)
	if err != nil {
		s.logger.WithError(err).Debug("Access token rejected")
		return nil, apperrors.NewAuthenticationError("Invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, apperrors.NewAuthenticationError("Invalid token: no user identifier")
	}
	role := claims.Role
	if role == "" {
		role = domain.RolePlain
	}
	return &domain.Principal{ID: claims.Subject, Role: role}, nil
}

// SearchUsers matches q against names, nickname and email
func (s *Service) SearchUsers(ctx context.Context, q string) ([]domain.UserSummary, error) {
	q = strings.TrimSpace(q)
	out := make([]domain.UserSummary, 0)
	if q == "" {
		return out, nil
	}
	users, err := s.users.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to search users", err)
	}
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// UpdateProfile changes display fields of the caller
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.UserSummary, error) {
	if err := service.ValidateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Nickname != nil {
		user.Nickname = strings.TrimSpace(*in.Nickname)
	}
	if in.PreferNickname != nil {
		user.PreferNickname = *in.PreferNickname
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewInternalError("Failed to update profile", err)
	}
	summary := user.Summary()
	return &summary, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError("User not found")
	}
	return user, nil
}

// issue signs a token pair and stores the refresh token on the user
func (s *Service) issue(ctx context.Context, user *domain.User) (*Session, error) {
	now := time.Now()
	accessExp := now.Add(s.cfg.AccessTTL)
	refreshExp := now.Add(s.cfg.RefreshTTL)

	access, err := signToken(user, tokenAccess, s.cfg.AccessSecret, now, accessExp)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to sign access token", err)
	}
	refresh, err := signToken(user, tokenRefresh, s.cfg.RefreshSecret, now, refreshExp)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to sign refresh token", err)
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, apperrors.NewInternalError("Failed to store refresh token", err)
	}

	return &Session{
		User:             user.Summary(),
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func signToken(user *domain.User, typ, secret string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		Role: user.Role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(tokenString, secret, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("expected %s token, got %q", typ, claims.Type)
	}
	return claims, nil
}
