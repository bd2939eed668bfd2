package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"orgie/internal/domain"
	"orgie/internal/recurrence"
	"orgie/internal/stats"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/redis"
)

// GenerateInput is the term generation payload
type GenerateInput struct {
	EventID   string `json:"eventId" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// GenerateResult reports what a generation run did
type GenerateResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := domain.ParseDay(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("Invalid startDate",
			map[string]interface{}{"startDate": "date"})
	}
	end, err := domain.ParseDay(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("Invalid endDate",
			map[string]interface{}{"endDate": "date"})
	}
	return start, end, nil
}

// GenerateTerms expands the event recurrence over [startDate, endDate] and
// inserts a term for every matching day that does not have one yet. Existing
// terms are never touched, so repeating a call inserts nothing.
func (s *EventService) GenerateTerms(ctx context.Context, requester domain.Principal, in GenerateInput) (*GenerateResult, error) {
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	start, end, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if err := requireManager(event, requester); err != nil {
		return nil, err
	}
	if !event.HasWeekDays() {
		return nil, apperrors.NewInvalidStateError("Event must be recurring with weekDays to generate terms")
	}

	days, err := recurrence.Expand(event.Recurrence.WeekDays, start, end)
	switch {
	case errors.Is(err, recurrence.ErrSpanTooLong):
		return nil, apperrors.NewValidationError("Date range is too long",
			map[string]interface{}{"endDate": "max_span"})
	case err != nil:
		return nil, apperrors.NewInvalidStateError("Event recurrence is invalid: " + err.Error())
	}

	result := &GenerateResult{Total: len(days)}
	if len(days) == 0 {
		return result, nil
	}

	release, err := s.lockGeneration(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.terms.ListByEventAndDates(ctx, event.ID, days)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load existing terms", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		taken[t.Date.Format(domain.DateLayout)] = struct{}{}
	}

	candidates := make([]*domain.Term, 0, len(days))
	for _, d := range days {
		if _, ok := taken[d.Format(domain.DateLayout)]; ok {
			continue
		}
		candidates = append(candidates, &domain.Term{
			ID:        uuid.NewString(),
			EventID:   event.ID,
			Date:      d,
			StartTime: event.StartTime,
			EndTime:   event.EndTime,
			Attendees: domain.Attendees{},
		})
	}

	inserted, err := s.terms.CreateMany(ctx, candidates)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to insert terms", err)
	}
	result.Inserted = inserted
	result.Skipped = result.Total - inserted
	if start.Before(s.today()) {
		s.cache.InvalidateEvent(ctx, event.ID)
	}

	s.logger.Info("Terms generated",
		zap.String("event_id", event.ID),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("total", result.Total))
	return result, nil
}

// lockGeneration takes the per-event generation lock when Redis is
// configured. A Redis failure does not block generation since the unique
// (event, date) constraint still holds.
func (s *EventService) lockGeneration(ctx context.Context, eventID string) (func(), error) {
	noop := func() {}
	if s.redis == nil {
		return noop, nil
	}

	key := s.redis.KeyBuilder.KeyTermGeneration(eventID)
	acquired, err := s.redis.SetNX(ctx, key, "1", redis.TTLTermGeneration)
	if err != nil {
		s.logger.Warn("Term generation lock unavailable", zap.String("event_id", eventID), zap.Error(err))
		return noop, nil
	}
	if !acquired {
		return nil, apperrors.NewConflictError("Term generation is already running for this event")
	}
	return func() {
		if err := s.redis.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release term generation lock", zap.String("event_id", eventID), zap.Error(err))
		}
	}, nil
}

// loadTerm returns the term and its event
func (s *EventService) loadTerm(ctx context.Context, termID string) (*domain.Term, *domain.Event, error) {
	term, err := s.terms.GetByID(ctx, termID)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("Failed to load term", err)
	}
	if term == nil {
		return nil, nil, apperrors.NewNotFoundError("Term not found")
	}
	event, err := s.loadEvent(ctx, term.EventID)
	if err != nil {
		return nil, nil, err
	}
	return term, event, nil
}

// DeleteTerm removes a single term
func (s *EventService) DeleteTerm(ctx context.Context, requester domain.Principal, termID string) error {
	term, event, err := s.loadTerm(ctx, termID)
	if err != nil {
		return err
	}
	if err := requireManager(event, requester); err != nil {
		return err
	}
	if err := s.terms.Delete(ctx, term.ID); err != nil {
		return apperrors.NewInternalError("Failed to delete term", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Term deleted", zap.String("event_id", event.ID), zap.String("term_id", term.ID))
	return nil
}

// SaveStatistics overwrites the team tallies of a term. A nil value clears
// them.
func (s *EventService) SaveStatistics(ctx context.Context, requester domain.Principal, termID string, statistics *domain.Statistics) (*domain.Term, error) {
	if statistics != nil {
		if err := ValidateStruct(statistics); err != nil {
			return nil, err
		}
	}
	term, event, err := s.loadTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	if err := requireManager(event, requester); err != nil {
		return nil, err
	}

	if err := s.terms.UpdateStatistics(ctx, term.ID, statistics); err != nil {
		return nil, apperrors.NewInternalError("Failed to save statistics", err)
	}
	term.Statistics = statistics
	s.cache.InvalidateEvent(ctx, event.ID)

	teams := 0
	if statistics != nil {
		teams = len(statistics.Teams)
	}
	s.logger.Info("Term statistics saved",
		zap.String("event_id", event.ID),
		zap.String("term_id", term.ID),
		zap.Int("teams", teams))
	return term, nil
}

// PreviewOutcomes ranks the given tallies the way the statistics aggregate
// does, without saving anything.
func (s *EventService) PreviewOutcomes(ctx context.Context, termID string, statistics *domain.Statistics) ([]domain.TeamOutcome, error) {
	if statistics != nil {
		if err := ValidateStruct(statistics); err != nil {
			return nil, err
		}
	}
	if _, _, err := s.loadTerm(ctx, termID); err != nil {
		return nil, err
	}
	return stats.Preview(statistics), nil
}
