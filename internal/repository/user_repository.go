package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"orgie/internal/domain"
	"orgie/pkg/database"
)

const userColumns = `
	id, email, password_hash, first_name, last_name, nickname, prefer_nickname,
	role, COALESCE(refresh_token, ''), created_at, updated_at`

type PostgresUserRepository struct {
	db *database.PostgresDB
}

func NewUserRepository(db *database.PostgresDB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Nickname,
		&u.PreferNickname,
		&u.Role,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user
func (r *PostgresUserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, nickname, prefer_nickname,
			role, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Nickname, u.PreferNickname,
		u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByID gets a user by id
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByEmail gets a user by email, case-insensitively
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

// GetByRefreshToken finds the user holding token
func (r *PostgresUserRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return r.getOne(ctx, "refresh_token = $1", token)
}

func (r *PostgresUserRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// GetByIDs returns the users found, keyed by id
func (r *PostgresUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := r.list(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Search matches q against names, nickname and email
func (r *PostgresUserRepository) Search(ctx context.Context, q string, limit int) ([]*domain.User, error) {
	pattern := "%" + escapeLike(q) + "%"
	query := `SELECT ` + userColumns + ` FROM users
		WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR nickname ILIKE $1 OR email ILIKE $1
		ORDER BY first_name, last_name
		LIMIT $2`
	return r.list(ctx, query, pattern, limit)
}

// Update persists profile fields
func (r *PostgresUserRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users SET
			first_name = $2, last_name = $3, nickname = $4, prefer_nickname = $5, updated_at = $6
		WHERE id = $1
	`
	if _, err := r.db.Pool.Exec(ctx, query, u.ID, u.FirstName, u.LastName, u.Nickname, u.PreferNickname, u.UpdatedAt); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetRefreshToken stores the current refresh token; empty clears it
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	var value any
	if token != "" {
		value = token
	}
	if _, err := r.db.Pool.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, value); err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
