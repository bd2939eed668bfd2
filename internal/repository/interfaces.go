package repository

import (
	"context"
	"errors"
	"time"

	"orgie/internal/domain"
	"orgie/pkg/database"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("repository: duplicate key")

// Lookups return (nil, nil) when nothing matches.

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create inserts a user; ErrDuplicate when the email is taken
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByIDs returns the users found, keyed by id
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)

	// Search matches q case-insensitively against names, nickname and email
	Search(ctx context.Context, q string, limit int) ([]*domain.User, error)

	// Update persists the profile fields
	Update(ctx context.Context, user *domain.User) error

	// SetRefreshToken stores the current refresh token; empty clears it
	SetRefreshToken(ctx context.Context, userID, token string) error

	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)
}

// EventRepository defines the interface for event documents
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error

	GetByID(ctx context.Context, id string) (*domain.Event, error)

	GetByUUID(ctx context.Context, uuid string) (*domain.Event, error)

	// List returns every event, newest first
	List(ctx context.Context) ([]*domain.Event, error)

	// ListManagedBy returns events owned or administered by userID
	ListManagedBy(ctx context.Context, userID string) ([]*domain.Event, error)

	ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error)

	// ListWithAttendee returns events whose own attendee list contains a
	ListWithAttendee(ctx context.Context, a domain.Attendee) ([]*domain.Event, error)

	// Update replaces the mutable fields of the event
	Update(ctx context.Context, event *domain.Event) error

	Delete(ctx context.Context, id string) error
}

// TermRepository defines the interface for term documents. Dates are calendar
// days as produced by domain.Day and (event, date) is unique.
type TermRepository interface {
	// Create inserts one term; ErrDuplicate when the event already has a term that day
	Create(ctx context.Context, term *domain.Term) error

	// CreateMany inserts terms, silently skipping days that already exist, and
	// returns how many rows were written
	CreateMany(ctx context.Context, terms []*domain.Term) (int, error)

	GetByID(ctx context.Context, id string) (*domain.Term, error)

	// ListByEventAndDates returns the event's terms dated on any of dates
	ListByEventAndDates(ctx context.Context, eventID string, dates []time.Time) ([]*domain.Term, error)

	// ListActive returns terms dated today or later, ascending
	ListActive(ctx context.Context, eventID string, today time.Time) ([]*domain.Term, error)

	// ListArchived returns terms dated before today, most recent first
	ListArchived(ctx context.Context, eventID string, today time.Time) ([]*domain.Term, error)

	// ListEventIDsWithAttendee returns distinct event ids having a term attended by a
	ListEventIDsWithAttendee(ctx context.Context, a domain.Attendee) ([]string, error)

	UpdateAttendees(ctx context.Context, termID string, attendees domain.Attendees) error

	UpdateStatistics(ctx context.Context, termID string, statistics *domain.Statistics) error

	Delete(ctx context.Context, id string) error

	// DeleteByEvent removes every term of the event
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)

	// DeleteRange removes the event's terms dated within [start, end]
	DeleteRange(ctx context.Context, eventID string, start, end time.Time) (int64, error)

	// RemoveAttendee pulls a from every term of the event and returns the
	// number of terms changed
	RemoveAttendee(ctx context.Context, eventID string, a domain.Attendee) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users  UserRepository
	Events EventRepository
	Terms  TermRepository
}

// NewPostgresRepositories wires the pgx implementations over db
func NewPostgresRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Users:  NewUserRepository(db),
		Events: NewEventRepository(db),
		Terms:  NewTermRepository(db),
	}
}

var (
	_ UserRepository  = (*PostgresUserRepository)(nil)
	_ EventRepository = (*PostgresEventRepository)(nil)
	_ TermRepository  = (*PostgresTermRepository)(nil)
	_ UserRepository  = (*memoryUsers)(nil)
	_ EventRepository = (*memoryEvents)(nil)
	_ TermRepository  = (*memoryTerms)(nil)
)
