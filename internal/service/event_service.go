package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orgie/internal/domain"
	"orgie/internal/repository"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/logger"
	"orgie/pkg/redis"
)

// EventService implements event lifecycle, term generation, attendance,
// archive, guest and statistics operations.
type EventService struct {
	users  repository.UserRepository
	events repository.EventRepository
	terms  repository.TermRepository
	cache  StatsCache
	redis  *redis.Client
	logger *logger.Logger
	now    func() time.Time
}

// Option configures an EventService
type Option func(*EventService)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

// WithStatsCache sets the statistics cache
func WithStatsCache(cache StatsCache) Option {
	return func(s *EventService) { s.cache = cache }
}

// WithGenerationLock serializes term generation per event through Redis
func WithGenerationLock(client *redis.Client) Option {
	return func(s *EventService) { s.redis = client }
}

// NewEventService creates the service
func NewEventService(repos *repository.Repositories, log *logger.Logger, opts ...Option) *EventService {
	if log == nil {
		log = logger.NewNop()
	}
	s := &EventService{
		users:  repos.Users,
		events: repos.Events,
		terms:  repos.Terms,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCacheService(nil, 0, log.Logger)
	}
	return s
}

func (s *EventService) today() time.Time {
	return domain.Day(s.now())
}

// EventInput is the create payload
type EventInput struct {
	Name           string             `json:"name" validate:"required,max=50"`
	Place          string             `json:"place" validate:"max=50"`
	Type           domain.EventType   `json:"type" validate:"required,oneof=ONE_TIME RECURRING"`
	StartTime      string             `json:"startTime" validate:"required,hhmm"`
	EndTime        string             `json:"endTime" validate:"required,hhmm"`
	Date           string             `json:"date"`
	Recurrence     *domain.Recurrence `json:"recurrence"`
	Administrators []string           `json:"administrators"`
	MinAttendees   int                `json:"minAttendees" validate:"min=0"`
	MaxAttendees   int                `json:"maxAttendees" validate:"min=0"`
}

// EventUpdate is the partial update payload; nil fields are left unchanged
type EventUpdate struct {
	Name           *string            `json:"name" validate:"omitempty,min=1,max=50"`
	Place          *string            `json:"place" validate:"omitempty,max=50"`
	Type           *domain.EventType  `json:"type" validate:"omitempty,oneof=ONE_TIME RECURRING"`
	StartTime      *string            `json:"startTime" validate:"omitempty,hhmm"`
	EndTime        *string            `json:"endTime" validate:"omitempty,hhmm"`
	Date           *string            `json:"date"`
	Recurrence     *domain.Recurrence `json:"recurrence"`
	Administrators []string           `json:"administrators"`
	MinAttendees   *int               `json:"minAttendees" validate:"omitempty,min=0"`
	MaxAttendees   *int               `json:"maxAttendees" validate:"omitempty,min=0"`
}

func validateCapacity(min, max int) error {
	if max > 0 && min > max {
		return apperrors.NewValidationError("minAttendees must not exceed maxAttendees",
			map[string]interface{}{"minAttendees": "lte_max"})
	}
	return nil
}

func validateRecurrence(r *domain.Recurrence) error {
	if r == nil {
		return apperrors.NewValidationError("recurrence is required for recurring events",
			map[string]interface{}{"recurrence": "required"})
	}
	return ValidateStruct(r)
}

// CreateEvent creates an event owned by requester. A ONE_TIME event gets its
// single term right away.
func (s *EventService) CreateEvent(ctx context.Context, requester domain.Principal, in EventInput) (*domain.Event, error) {
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	if err := validateCapacity(in.MinAttendees, in.MaxAttendees); err != nil {
		return nil, err
	}

	now := s.now()
	event := &domain.Event{
		ID:             uuid.NewString(),
		UUID:           uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Place:          strings.TrimSpace(in.Place),
		OwnerID:        requester.ID,
		Type:           in.Type,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Administrators: in.Administrators,
		Attendees:      domain.Attendees{},
		Guests:         []domain.Guest{},
		MinAttendees:   in.MinAttendees,
		MaxAttendees:   in.MaxAttendees,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	event.EnsureOwnerAdministrator()

	switch in.Type {
	case domain.EventTypeOneTime:
		day, err := s.oneTimeDate(in.Date)
		if err != nil {
			return nil, err
		}
		event.Date = &day
	case domain.EventTypeRecurring:
		if err := validateRecurrence(in.Recurrence); err != nil {
			return nil, err
		}
		event.Recurrence = in.Recurrence
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperrors.NewInternalError("Failed to create event", err)
	}

	if event.Type == domain.EventTypeOneTime {
		term := &domain.Term{
			ID:        uuid.NewString(),
			EventID:   event.ID,
			Date:      *event.Date,
			StartTime: event.StartTime,
			EndTime:   event.EndTime,
			Attendees: domain.Attendees{},
		}
		if err := s.terms.Create(ctx, term); err != nil {
			return nil, apperrors.NewInternalError("Failed to create event term", err)
		}
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID),
		zap.String("owner_id", event.OwnerID),
		zap.String("type", string(event.Type)))
	return event, nil
}

func (s *EventService) oneTimeDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, apperrors.NewValidationError("date is required for one-time events",
			map[string]interface{}{"date": "required"})
	}
	day, err := domain.ParseDay(raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError("Invalid date", map[string]interface{}{"date": "date"})
	}
	if day.Before(s.today()) {
		return time.Time{}, apperrors.NewValidationError("date must not be in the past",
			map[string]interface{}{"date": "future"})
	}
	return day, nil
}

// loadEvent looks the event up by id and maps a miss to NotFound
func (s *EventService) loadEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load event", err)
	}
	if event == nil {
		return nil, apperrors.NewNotFoundError("Event not found")
	}
	return event, nil
}

func (s *EventService) loadEventByUUID(ctx context.Context, eventUUID string) (*domain.Event, error) {
	event, err := s.events.GetByUUID(ctx, eventUUID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load event", err)
	}
	if event == nil {
		return nil, apperrors.NewNotFoundError("Event not found")
	}
	return event, nil
}

func requireManager(event *domain.Event, requester domain.Principal) error {
	if !event.IsManager(requester.ID) {
		return apperrors.NewAuthorizationError("Only the event owner or an administrator can do this")
	}
	return nil
}

// UpdateEvent applies a partial update. Switching to ONE_TIME clears the
// recurrence and switching to RECURRING clears the date.
func (s *EventService) UpdateEvent(ctx context.Context, requester domain.Principal, id string, in EventUpdate) (*domain.Event, error) {
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireManager(event, requester); err != nil {
		return nil, err
	}

	if in.Name != nil {
		event.Name = strings.TrimSpace(*in.Name)
	}
	if in.Place != nil {
		event.Place = strings.TrimSpace(*in.Place)
	}
	if in.StartTime != nil {
		event.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		event.EndTime = *in.EndTime
	}
	if in.MinAttendees != nil {
		event.MinAttendees = *in.MinAttendees
	}
	if in.MaxAttendees != nil {
		event.MaxAttendees = *in.MaxAttendees
	}
	if err := validateCapacity(event.MinAttendees, event.MaxAttendees); err != nil {
		return nil, err
	}
	if in.Administrators != nil {
		event.Administrators = in.Administrators
	}
	event.EnsureOwnerAdministrator()

	if in.Type != nil {
		event.Type = *in.Type
	}
	switch event.Type {
	case domain.EventTypeOneTime:
		event.Recurrence = nil
		if in.Date != nil {
			day, err := s.oneTimeDate(*in.Date)
			if err != nil {
				return nil, err
			}
			event.Date = &day
		}
		if event.Date == nil {
			return nil, apperrors.NewValidationError("date is required for one-time events",
				map[string]interface{}{"date": "required"})
		}
	case domain.EventTypeRecurring:
		event.Date = nil
		if in.Recurrence != nil {
			event.Recurrence = in.Recurrence
		}
		if err := validateRecurrence(event.Recurrence); err != nil {
			return nil, err
		}
	}

	event.UpdatedAt = s.now()
	if err := s.events.Update(ctx, event); err != nil {
		return nil, apperrors.NewInternalError("Failed to update event", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Event updated", zap.String("event_id", event.ID), zap.String("requester_id", requester.ID))
	return event, nil
}

// DeleteEvent removes the event and all of its terms. Only the owner may
// delete.
func (s *EventService) DeleteEvent(ctx context.Context, requester domain.Principal, id string) error {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return err
	}
	if !event.IsOwner(requester.ID) {
		return apperrors.NewAuthorizationError("Only the event owner can delete the event")
	}

	deleted, err := s.terms.DeleteByEvent(ctx, event.ID)
	if err != nil {
		return apperrors.NewInternalError("Failed to delete event terms", err)
	}
	if err := s.events.Delete(ctx, event.ID); err != nil {
		return apperrors.NewInternalError("Failed to delete event", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Event deleted",
		zap.String("event_id", event.ID),
		zap.Int64("terms_deleted", deleted))
	return nil
}

// ListEvents returns every event, newest first
func (s *EventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list events", err)
	}
	return events, nil
}

// ListMyEvents returns the events requester owns or administers
func (s *EventService) ListMyEvents(ctx context.Context, requester domain.Principal) ([]*domain.Event, error) {
	events, err := s.events.ListManagedBy(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list events", err)
	}
	return events, nil
}

// Dashboard splits the requester's events into managed and attending
type Dashboard struct {
	Managed   []*domain.Event `json:"managed"`
	Attending []*domain.Event `json:"attending"`
}

// Dashboard collects managed events and events the requester attends either
// at event level or in any term.
func (s *EventService) Dashboard(ctx context.Context, requester domain.Principal) (*Dashboard, error) {
	me := domain.UserAttendee(requester.ID)

	var (
		managed, attendingEvents []*domain.Event
		termEventIDs             []string
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		managed, err = s.events.ListManagedBy(gCtx, requester.ID)
		return err
	})
	g.Go(func() error {
		var err error
		attendingEvents, err = s.events.ListWithAttendee(gCtx, me)
		return err
	})
	g.Go(func() error {
		var err error
		termEventIDs, err = s.terms.ListEventIDsWithAttendee(gCtx, me)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewInternalError("Failed to load dashboard", err)
	}

	seen := make(map[string]struct{}, len(managed))
	for _, e := range managed {
		seen[e.ID] = struct{}{}
	}

	attending := make([]*domain.Event, 0)
	for _, e := range attendingEvents {
		if _, ok := seen[e.ID]; !ok {
			seen[e.ID] = struct{}{}
			attending = append(attending, e)
		}
	}

	missing := make([]string, 0)
	for _, id := range termEventIDs {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		more, err := s.events.ListByIDs(ctx, missing)
		if err != nil {
			return nil, apperrors.NewInternalError("Failed to load dashboard", err)
		}
		attending = append(attending, more...)
	}

	return &Dashboard{Managed: managed, Attending: attending}, nil
}

// EventDetail is an event with its active terms and resolved participant
// names keyed by "KIND:id"
type EventDetail struct {
	Event *domain.Event     `json:"event"`
	Terms []*domain.Term    `json:"terms"`
	Names map[string]string `json:"names"`
}

// GetEventByUUID loads the public view of an event
func (s *EventService) GetEventByUUID(ctx context.Context, eventUUID string) (*EventDetail, error) {
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, err
	}

	terms, err := s.terms.ListActive(ctx, event.ID, s.today())
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load terms", err)
	}

	names, err := s.resolveNames(ctx, event, terms)
	if err != nil {
		return nil, err
	}
	return &EventDetail{Event: event, Terms: terms, Names: names}, nil
}

// participantUserIDs returns every USER id referenced by the event or terms
func participantUserIDs(event *domain.Event, terms []*domain.Term) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	addAll := func(list []domain.Attendee) {
		for _, a := range list {
			if a.Kind == domain.KindUser {
				add(a.ID)
			}
		}
	}

	add(event.OwnerID)
	for _, id := range event.Administrators {
		add(id)
	}
	addAll(event.Attendees)
	for _, t := range terms {
		addAll(t.Attendees)
		if t.Statistics != nil {
			for _, team := range t.Statistics.Teams {
				addAll(team.Members)
			}
		}
	}
	return ids
}

func (s *EventService) loadUsers(ctx context.Context, event *domain.Event, terms []*domain.Term) (map[string]*domain.User, error) {
	users, err := s.users.GetByIDs(ctx, participantUserIDs(event, terms))
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load participants", err)
	}
	return users, nil
}

func (s *EventService) resolveNames(ctx context.Context, event *domain.Event, terms []*domain.Term) (map[string]string, error) {
	users, err := s.loadUsers(ctx, event, terms)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for id, u := range users {
		names[domain.UserAttendee(id).Key()] = u.DisplayName()
	}
	for _, g := range event.Guests {
		names[domain.GuestAttendee(g.ID).Key()] = g.DisplayName()
	}
	return names, nil
}

// attendeeFields are shared by attendance log lines
func attendeeFields(eventID string, a domain.Attendee, requester domain.Principal) []zap.Field {
	return []zap.Field{
		zap.String("event_id", eventID),
		zap.String("attendee_id", a.ID),
		zap.String("attendee_kind", string(a.Kind)),
		zap.String("requester_id", requester.ID),
	}
}
