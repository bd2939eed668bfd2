package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// toJSON encodes a JSONB parameter. nil slices are stored as [].
func toJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb: %w", err)
	}
	if string(b) == "null" {
		return []byte("[]"), nil
	}
	return b, nil
}

// toNullableJSON encodes an optional object; a nil pointer becomes SQL NULL
func toNullableJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode jsonb: %w", err)
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func fromJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode jsonb: %w", err)
	}
	return nil
}
