package service

import (
	"context"

	"orgie/internal/domain"
	"orgie/internal/stats"
	apperrors "orgie/pkg/errors"
)

// EventStats returns the participant aggregate over the event's archived
// terms ordered by sortKey and dir.
func (s *EventService) EventStats(ctx context.Context, eventUUID, sortKey, dir string) (*domain.StatsSummary, error) {
	key, direction, err := stats.ParseSort(sortKey, dir)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]interface{}{"sort": "oneof"})
	}
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, err
	}

	summary, err := s.cache.GetStats(ctx, event.ID, func(ctx context.Context) (*domain.StatsSummary, error) {
		return s.computeStats(ctx, event)
	})
	if err != nil {
		if appErr := apperrors.AsAppError(err); appErr.Type != apperrors.ErrorTypeInternal {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("Failed to compute statistics", err)
	}

	stats.Sort(summary.Participants, key, direction)
	return summary, nil
}

func (s *EventService) computeStats(ctx context.Context, event *domain.Event) (*domain.StatsSummary, error) {
	archived, err := s.terms.ListArchived(ctx, event.ID, s.today())
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetByIDs(ctx, participantUserIDs(event, archived))
	if err != nil {
		return nil, err
	}
	summary := stats.Summarize(event, archived, stats.NewNames(event, users))
	return &summary, nil
}
