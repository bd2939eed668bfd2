package domain

import (
	"strings"
	"time"
)

// UserRole grants site-wide privileges
type UserRole string

const (
	RolePlain UserRole = "PLAIN"
	RoleAdmin UserRole = "ADMIN"
)

// User is a registered account. Email is optional.
type User struct {
	ID             string    `json:"id"`
	Email          *string   `json:"email,omitempty"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Nickname       string    `json:"nickname,omitempty"`
	PreferNickname bool      `json:"preferNickname"`
	Role           UserRole  `json:"role"`
	RefreshToken   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DisplayName prefers the nickname when the user asked for it
func (u *User) DisplayName() string {
	if u.PreferNickname && strings.TrimSpace(u.Nickname) != "" {
		return u.Nickname
	}
	if name := joinName(u.FirstName, u.LastName); name != "" {
		return name
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return UnknownName
}

// Principal is the authenticated caller placed into the request context
type Principal struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// UserSummary is the public projection of a user
type UserSummary struct {
	ID             string   `json:"id"`
	Email          *string  `json:"email,omitempty"`
	FirstName      string   `json:"firstName,omitempty"`
	LastName       string   `json:"lastName,omitempty"`
	Nickname       string   `json:"nickname,omitempty"`
	PreferNickname bool     `json:"preferNickname"`
	Role           UserRole `json:"role"`
	DisplayName    string   `json:"displayName"`
}

// Summary projects the user without credentials
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Nickname:       u.Nickname,
		PreferNickname: u.PreferNickname,
		Role:           u.Role,
		DisplayName:    u.DisplayName(),
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
