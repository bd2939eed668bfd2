package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgie/internal/domain"
	"orgie/internal/repository"
	apperrors "orgie/pkg/errors"
)

func newTestService(t *testing.T) (*Service, repository.UserRepository) {
	t.Helper()
	users := repository.NewMemoryStore().Repositories().Users
	return NewService(users, Config{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"}, nil), users
}

func assertErrorType(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, want), "expected %s, got %v", want, err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Passw0rd", false},
		{"unicode upper", "Ünicode12", false},
		{"too short", "Pa5s", true},
		{"no uppercase", "password1", true},
		{"no digit", "Password", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assertErrorType(t, err, apperrors.ErrorTypeValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Email:     "  Ann@Example.com ",
		Password:  "Secret123",
		FirstName: "Ann",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	require.NotNil(t, session.User.Email)
	assert.Equal(t, "ann@example.com", *session.User.Email)
	assert.Equal(t, domain.RolePlain, session.User.Role)
	assert.Equal(t, "Ann Smith", session.User.DisplayName)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := users.GetByID(ctx, session.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", stored.PasswordHash)
	assert.Equal(t, session.RefreshToken, stored.RefreshToken)

	_, err = svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "Secret123"})
	assertErrorType(t, err, apperrors.ErrorTypeConflict)

	login, err := svc.Login(ctx, LoginInput{Email: "ANN@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "Wrong1234"})
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)

	_, err = svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "Secret123"})
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"weak password", RegisterInput{Password: "weak"}},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "Secret123"}},
		{"long nickname", RegisterInput{Password: "Secret123", Nickname: "abcdefghijabcdefghijabcdefghijk"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.input)
			assertErrorType(t, err, apperrors.ErrorTypeValidation)
		})
	}

	session, err := svc.Register(ctx, RegisterInput{Password: "Secret123", Nickname: "anon"})
	require.NoError(t, err, "email is optional")
	assert.Nil(t, session.User.Email)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "Secret123"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, session.User.ID, rotated.User.ID)

	_, err = svc.Refresh(ctx, session.RefreshToken)
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)

	_, err = svc.Refresh(ctx, rotated.AccessToken)
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)

	_, err = svc.Refresh(ctx, "")
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)

	require.NoError(t, svc.Logout(ctx, session.User.ID))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assertErrorType(t, err, apperrors.ErrorTypeAuthentication)
}

func TestValidateAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Email: "ann@example.com", Password: "Secret123"})
	require.NoError(t, err)

	principal, err := svc.ValidateAccessToken(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{ID: session.User.ID, Role: domain.RolePlain}, *principal)

	forged, err := signToken(&domain.User{ID: session.User.ID}, tokenAccess, "other-secret", time.Now(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	expired, err := signToken(&domain.User{ID: session.User.ID}, tokenAccess, "access-secret", time.Now().Add(-time.Hour), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": session.User.ID, "iss": issuer, "typ": tokenAccess}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", forged},
		{"expired", expired},
		{"unsigned", none},
		{"refresh token", session.RefreshToken},
		{"garbage", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(ctx, tt.token)
			assertErrorType(t, err, apperrors.ErrorTypeAuthentication)
		})
	}
}

func TestSearchUsers(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	for _, u := range []*domain.User{
		{ID: "1", FirstName: "Anna", LastName: "Berg"},
		{ID: "2", FirstName: "Bob", Nickname: "annoying"},
		{ID: "3", FirstName: "Carl"},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	found, err := svc.SearchUsers(ctx, "ANN")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "1", found[0].ID)
	assert.Equal(t, "2", found[1].ID)

	empty, err := svc.SearchUsers(ctx, "  ")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Password: "Secret123", FirstName: "Ann"})
	require.NoError(t, err)

	nick, prefer := " Annie ", true
	summary, err := svc.UpdateProfile(ctx, session.User.ID, ProfileInput{Nickname: &nick, PreferNickname: &prefer})
	require.NoError(t, err)
	assert.Equal(t, "Annie", summary.Nickname)
	assert.Equal(t, "Annie", summary.DisplayName)
	assert.Equal(t, "Ann", summary.FirstName, "untouched fields are kept")

	me, err := svc.Me(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", me.DisplayName)

	long := "abcdefghijabcdefghijabcdefghijk"
	_, err = svc.UpdateProfile(ctx, session.User.ID, ProfileInput{Nickname: &long})
	assertErrorType(t, err, apperrors.ErrorTypeValidation)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileInput{Nickname: &nick})
	assertErrorType(t, err, apperrors.ErrorTypeNotFound)
}
