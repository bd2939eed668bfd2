package service

import (
	"context"

	"go.uber.org/zap"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
)

// RangeInput is an inclusive day range
type RangeInput struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// ListActiveTerms returns terms dated today or later, ascending
func (s *EventService) ListActiveTerms(ctx context.Context, eventUUID string) ([]*domain.Term, error) {
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, err
	}
	terms, err := s.terms.ListActive(ctx, event.ID, s.today())
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load terms", err)
	}
	return terms, nil
}

// ListArchivedTerms returns terms dated before today, most recent first
func (s *EventService) ListArchivedTerms(ctx context.Context, eventUUID string) ([]*domain.Term, error) {
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, err
	}
	terms, err := s.terms.ListArchived(ctx, event.ID, s.today())
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to load archived terms", err)
	}
	return terms, nil
}

// BulkDeleteArchived deletes the event's terms dated within [startDate,
// endDate]. endDate must lie strictly before today so active terms can never
// be removed this way.
func (s *EventService) BulkDeleteArchived(ctx context.Context, requester domain.Principal, eventUUID string, in RangeInput) (int64, error) {
	if err := ValidateStruct(in); err != nil {
		return 0, err
	}
	start, end, err := parseRange(in.StartDate, in.EndDate)
	if err != nil {
		return 0, err
	}

	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return 0, err
	}
	if err := requireManager(event, requester); err != nil {
		return 0, err
	}
	if !domain.Day(end).Before(s.today()) {
		return 0, apperrors.NewInvalidRangeError("End date must be in the past")
	}

	deleted, err := s.terms.DeleteRange(ctx, event.ID, start, end)
	if err != nil {
		return 0, apperrors.NewInternalError("Failed to delete archived terms", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Archived terms deleted",
		zap.String("event_id", event.ID),
		zap.String("start", start.Format(domain.DateLayout)),
		zap.String("end", end.Format(domain.DateLayout)),
		zap.Int64("deleted", deleted))
	return deleted, nil
}
