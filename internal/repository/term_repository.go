package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"orgie/internal/domain"
	"orgie/pkg/database"
)

const termColumns = `id, event_id, date, start_time, end_time, attendees, statistics`

type PostgresTermRepository struct {
	db *database.PostgresDB
}

func NewTermRepository(db *database.PostgresDB) *PostgresTermRepository {
	return &PostgresTermRepository{db: db}
}

func scanTerm(row scanner) (*domain.Term, error) {
	var (
		t                     domain.Term
		attendees, statistics []byte
	)
	if err := row.Scan(&t.ID, &t.EventID, &t.Date, &t.StartTime, &t.EndTime, &attendees, &statistics); err != nil {
		return nil, err
	}
	t.Date = domain.Day(t.Date)
	if err := fromJSON(attendees, &t.Attendees); err != nil {
		return nil, err
	}
	if t.Attendees == nil {
		t.Attendees = domain.Attendees{}
	}
	if len(statistics) > 0 {
		t.Statistics = &domain.Statistics{}
		if err := fromJSON(statistics, t.Statistics); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *PostgresTermRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Term, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	terms := make([]*domain.Term, 0)
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate terms: %w", err)
	}
	return terms, nil
}

const insertTerm = `
	INSERT INTO terms (id, event_id, date, start_time, end_time, attendees, statistics)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func termArgs(t *domain.Term) ([]any, error) {
	attendees, err := toJSON(t.Attendees)
	if err != nil {
		return nil, err
	}
	statistics, err := toNullableJSON(t.Statistics)
	if err != nil {
		return nil, err
	}
	return []any{t.ID, t.EventID, domain.Day(t.Date), t.StartTime, t.EndTime, attendees, statistics}, nil
}

// Create inserts a single term
func (r *PostgresTermRepository) Create(ctx context.Context, t *domain.Term) error {
	args, err := termArgs(t)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, insertTerm, args...)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create term: %w", err)
	}
	return nil
}

// CreateMany batches inserts and lets the (event_id, date) constraint drop
// days that a concurrent call already wrote.
func (r *PostgresTermRepository) CreateMany(ctx context.Context, terms []*domain.Term) (int, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range terms {
		args, err := termArgs(t)
		if err != nil {
			return 0, err
		}
		batch.Queue(insertTerm+` ON CONFLICT (event_id, date) DO NOTHING`, args...)
	}

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range terms {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert term batch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// GetByID gets a term by id
func (r *PostgresTermRepository) GetByID(ctx context.Context, id string) (*domain.Term, error) {
	t, err := scanTerm(r.db.Pool.QueryRow(ctx, `SELECT `+termColumns+` FROM terms WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return t, nil
}

// ListByEventAndDates returns the event's terms on any of the given days
func (r *PostgresTermRepository) ListByEventAndDates(ctx context.Context, eventID string, dates []time.Time) ([]*domain.Term, error) {
	if len(dates) == 0 {
		return []*domain.Term{}, nil
	}
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = domain.Day(d)
	}
	return r.query(ctx,
		`SELECT `+termColumns+` FROM terms WHERE event_id = $1 AND date = ANY($2::date[]) ORDER BY date ASC`,
		eventID, days)
}

// ListActive returns terms dated today or later, ascending
func (r *PostgresTermRepository) ListActive(ctx context.Context, eventID string, today time.Time) ([]*domain.Term, error) {
	return r.query(ctx,
		`SELECT `+termColumns+` FROM terms WHERE event_id = $1 AND date >= $2 ORDER BY date ASC`,
		eventID, domain.Day(today))
}

// ListArchived returns terms dated before today, most recent first
func (r *PostgresTermRepository) ListArchived(ctx context.Context, eventID string, today time.Time) ([]*domain.Term, error) {
	return r.query(ctx,
		`SELECT `+termColumns+` FROM terms WHERE event_id = $1 AND date < $2 ORDER BY date DESC`,
		eventID, domain.Day(today))
}

// ListEventIDsWithAttendee returns events having a term attended by a
func (r *PostgresTermRepository) ListEventIDsWithAttendee(ctx context.Context, a domain.Attendee) ([]string, error) {
	probe, err := toJSON(domain.Attendees{a})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT event_id FROM terms WHERE attendees @> $1::jsonb`, probe)
	if err != nil {
		return nil, fmt.Errorf("failed to query attended events: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect attended events: %w", err)
	}
	return ids, nil
}

// UpdateAttendees overwrites the attendee list
func (r *PostgresTermRepository) UpdateAttendees(ctx context.Context, termID string, attendees domain.Attendees) error {
	data, err := toJSON(attendees)
	if err != nil {
		return err
	}
	if _, err := r.db.Pool.Exec(ctx, `UPDATE terms SET attendees = $2 WHERE id = $1`, termID, data); err != nil {
		return fmt.Errorf("failed to update term attendees: %w", err)
	}
	return nil
}

// UpdateStatistics overwrites the team tallies
func (r *PostgresTermRepository) UpdateStatistics(ctx context.Context, termID string, statistics *domain.Statistics) error {
	data, err := toNullableJSON(statistics)
	if err != nil {
		return err
	}
	if _, err := r.db.Pool.Exec(ctx, `UPDATE terms SET statistics = $2 WHERE id = $1`, termID, data); err != nil {
		return fmt.Errorf("failed to update term statistics: %w", err)
	}
	return nil
}

// Delete removes one term
func (r *PostgresTermRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM terms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete term: %w", err)
	}
	return nil
}

// DeleteByEvent removes every term of the event
func (r *PostgresTermRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM terms WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete event terms: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteRange removes terms dated within [start, end]
func (r *PostgresTermRepository) DeleteRange(ctx context.Context, eventID string, start, end time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM terms WHERE event_id = $1 AND date BETWEEN $2 AND $3`,
		eventID, domain.Day(start), domain.Day(end))
	if err != nil {
		return 0, fmt.Errorf("failed to delete term range: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RemoveAttendee filters a out of every attendee list of the event
func (r *PostgresTermRepository) RemoveAttendee(ctx context.Context, eventID string, a domain.Attendee) (int64, error) {
	probe, err := toJSON(domain.Attendees{a})
	if err != nil {
		return 0, err
	}
	query := `
		UPDATE terms SET attendees = COALESCE((
			SELECT jsonb_agg(elem ORDER BY ord)
			FROM jsonb_array_elements(attendees) WITH ORDINALITY AS x(elem, ord)
			WHERE NOT (elem->>'id' = $2 AND elem->>'kind' = $3)
		), '[]'::jsonb)
		WHERE event_id = $1 AND attendees @> $4::jsonb
	`
	tag, err := r.db.Pool.Exec(ctx, query, eventID, a.ID, string(a.Kind), probe)
	if err != nil {
		return 0, fmt.Errorf("failed to remove attendee from terms: %w", err)
	}
	return tag.RowsAffected(), nil
}
