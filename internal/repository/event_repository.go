package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"orgie/internal/domain"
	"orgie/pkg/database"
)

const eventColumns = `
	id, uuid, name, place, owner_id, type, start_time, end_time, date, recurrence,
	administrators, attendees, guests, min_attendees, max_attendees, created_at, updated_at`

type PostgresEventRepository struct {
	db *database.PostgresDB
}

func NewEventRepository(db *database.PostgresDB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func scanEvent(row scanner) (*domain.Event, error) {
	var (
		e                             domain.Event
		recurrence, attendees, guests []byte
	)
	err := row.Scan(
		&e.ID,
		&e.UUID,
		&e.Name,
		&e.Place,
		&e.OwnerID,
		&e.Type,
		&e.StartTime,
		&e.EndTime,
		&e.Date,
		&recurrence,
		&e.Administrators,
		&attendees,
		&guests,
		&e.MinAttendees,
		&e.MaxAttendees,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(recurrence) > 0 {
		e.Recurrence = &domain.Recurrence{}
		if err := fromJSON(recurrence, e.Recurrence); err != nil {
			return nil, err
		}
	}
	if err := fromJSON(attendees, &e.Attendees); err != nil {
		return nil, err
	}
	if err := fromJSON(guests, &e.Guests); err != nil {
		return nil, err
	}
	if e.Attendees == nil {
		e.Attendees = domain.Attendees{}
	}
	if e.Guests == nil {
		e.Guests = []domain.Guest{}
	}
	return &e, nil
}

type eventParams struct {
	recurrence, attendees, guests []byte
}

func encodeEvent(e *domain.Event) (*eventParams, error) {
	var (
		p   eventParams
		err error
	)
	if p.recurrence, err = toNullableJSON(e.Recurrence); err != nil {
		return nil, err
	}
	if p.attendees, err = toJSON(e.Attendees); err != nil {
		return nil, err
	}
	if p.guests, err = toJSON(e.Guests); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the event
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	p, err := encodeEvent(e)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (
			id, uuid, name, place, owner_id, type, start_time, end_time, date, recurrence,
			administrators, attendees, guests, min_attendees, max_attendees, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		e.ID, e.UUID, e.Name, e.Place, e.OwnerID, e.Type, e.StartTime, e.EndTime, e.Date, p.recurrence,
		e.Administrators, p.attendees, p.guests, e.MinAttendees, e.MaxAttendees, e.CreatedAt, e.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *PostgresEventRepository) getOne(ctx context.Context, where string, arg any) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + where
	e, err := scanEvent(r.db.Pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetByID gets an event by primary key
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUUID gets an event by its public uuid
func (r *PostgresEventRepository) GetByUUID(ctx context.Context, uuid string) (*domain.Event, error) {
	return r.getOne(ctx, "uuid = $1", uuid)
}

func (r *PostgresEventRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// List returns every event
func (r *PostgresEventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	return r.list(ctx, "")
}

// ListManagedBy returns events owned or administered by userID
func (r *PostgresEventRepository) ListManagedBy(ctx context.Context, userID string) ([]*domain.Event, error) {
	return r.list(ctx, "owner_id = $1 OR $1 = ANY(administrators)", userID)
}

// ListByIDs returns the events with the given ids
func (r *PostgresEventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	return r.list(ctx, "id = ANY($1)", ids)
}

// ListWithAttendee returns events whose attendee list contains a
func (r *PostgresEventRepository) ListWithAttendee(ctx context.Context, a domain.Attendee) ([]*domain.Event, error) {
	probe, err := toJSON(domain.Attendees{a})
	if err != nil {
		return nil, err
	}
	return r.list(ctx, "attendees @> $1::jsonb", probe)
}

// Update replaces the mutable fields of the event
func (r *PostgresEventRepository) Update(ctx context.Context, e *domain.Event) error {
	p, err := encodeEvent(e)
	if err != nil {
		return err
	}

	query := `
		UPDATE events SET
			name = $2, place = $3, type = $4, start_time = $5, end_time = $6, date = $7,
			recurrence = $8, administrators = $9, attendees = $10, guests = $11,
			min_attendees = $12, max_attendees = $13, updated_at = $14
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		e.ID, e.Name, e.Place, e.Type, e.StartTime, e.EndTime, e.Date,
		p.recurrence, e.Administrators, p.attendees, p.guests,
		e.MinAttendees, e.MaxAttendees, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update event %s: %w", e.ID, pgx.ErrNoRows)
	}
	return nil
}

// Delete removes the event row only; terms are removed by the caller
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}
