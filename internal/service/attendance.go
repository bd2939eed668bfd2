package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
)

// AttendeeInput names the participant to toggle. An empty UserID means the
// requester and an empty Kind means USER.
type AttendeeInput struct {
	UserID string `json:"userId"`
	Kind   string `json:"kind"`
}

// resolveTarget turns the input into an attendee reference
func resolveTarget(requester domain.Principal, in AttendeeInput) (domain.Attendee, error) {
	kind, err := domain.ParseAttendeeKind(in.Kind)
	if err != nil {
		return domain.Attendee{}, apperrors.NewValidationError("kind must be USER or GUEST",
			map[string]interface{}{"kind": "oneof"})
	}
	id := strings.TrimSpace(in.UserID)
	if id == "" {
		if kind == domain.KindGuest {
			return domain.Attendee{}, apperrors.NewValidationError("userId is required for guests",
				map[string]interface{}{"userId": "required"})
		}
		id = requester.ID
	}
	return domain.Attendee{ID: id, Kind: kind}, nil
}

// authorizeTarget allows a requester to act on their own USER entry, managers
// to act on anyone and a patron to act on the guests they added.
func authorizeTarget(event *domain.Event, requester domain.Principal, target domain.Attendee) error {
	if target.Kind == domain.KindUser && target.ID == requester.ID && requester.ID != "" {
		return nil
	}
	if event.IsManager(requester.ID) {
		return nil
	}
	if target.Kind == domain.KindGuest && event.IsPatron(requester.ID, target.ID) {
		return nil
	}
	return apperrors.NewAuthorizationError("Not allowed to change attendance for this participant")
}

func requireKnownGuest(event *domain.Event, target domain.Attendee) error {
	if target.Kind != domain.KindGuest {
		return nil
	}
	if _, ok := event.FindGuest(target.ID); !ok {
		return apperrors.NewNotFoundError("Guest not found")
	}
	return nil
}

// ToggleTermAttendance flips the target's membership in the term. Joining a
// term whose event caps attendance fails once the cap is reached; leaving
// always succeeds.
func (s *EventService) ToggleTermAttendance(ctx context.Context, requester domain.Principal, termID string, in AttendeeInput) (*domain.Term, error) {
	target, err := resolveTarget(requester, in)
	if err != nil {
		return nil, err
	}
	term, event, err := s.loadTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTarget(event, requester, target); err != nil {
		return nil, err
	}

	joining := !term.Attendees.Contains(target)
	if joining {
		if err := requireKnownGuest(event, target); err != nil {
			return nil, err
		}
		if event.MaxAttendees > 0 && len(term.Attendees) >= event.MaxAttendees {
			return nil, apperrors.NewCapacityExceededError("Term is full")
		}
	}

	attendees, _ := term.Attendees.Toggle(target)
	if err := s.terms.UpdateAttendees(ctx, term.ID, attendees); err != nil {
		return nil, apperrors.NewInternalError("Failed to update attendance", err)
	}
	term.Attendees = attendees
	if term.IsArchived(s.now()) {
		s.cache.InvalidateEvent(ctx, event.ID)
	}

	s.logger.Info("Term attendance toggled",
		append(attendeeFields(event.ID, target, requester),
			zap.String("term_id", term.ID),
			zap.Bool("joined", joining),
			zap.Int("attendees", len(attendees)))...)
	return term, nil
}

// ToggleEventAttendance flips the target's membership in the event level
// attendee list. No capacity applies here.
func (s *EventService) ToggleEventAttendance(ctx context.Context, requester domain.Principal, eventUUID string, in AttendeeInput) (*domain.Event, error) {
	target, err := resolveTarget(requester, in)
	if err != nil {
		return nil, err
	}
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, err
	}
	if err := authorizeTarget(event, requester, target); err != nil {
		return nil, err
	}

	joining := !event.Attendees.Contains(target)
	if joining {
		if err := requireKnownGuest(event, target); err != nil {
			return nil, err
		}
	}

	event.Attendees, _ = event.Attendees.Toggle(target)
	event.UpdatedAt = s.now()
	if err := s.events.Update(ctx, event); err != nil {
		return nil, apperrors.NewInternalError("Failed to update attendance", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Event attendance toggled",
		append(attendeeFields(event.ID, target, requester), zap.Bool("joined", joining))...)
	return event, nil
}
