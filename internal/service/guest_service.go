package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
)

// GuestInput is the add guest payload
type GuestInput struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
}

// AddGuest registers a guest on the event with requester as patron and puts
// the guest on the event attendee list.
func (s *EventService) AddGuest(ctx context.Context, requester domain.Principal, eventUUID string, in GuestInput) (*domain.Event, *domain.Guest, error) {
	if err := ValidateStruct(in); err != nil {
		return nil, nil, err
	}
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return nil, nil, err
	}

	guest := domain.Guest{
		ID:        uuid.NewString(),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		AddedBy:   requester.ID,
	}
	event.Guests = append(event.Guests, guest)
	event.Attendees = append(event.Attendees, domain.GuestAttendee(guest.ID))
	event.UpdatedAt = s.now()

	if err := s.events.Update(ctx, event); err != nil {
		return nil, nil, apperrors.NewInternalError("Failed to add guest", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Guest added",
		zap.String("event_id", event.ID),
		zap.String("guest_id", guest.ID),
		zap.String("added_by", requester.ID))
	return event, &guest, nil
}

// RemoveAttendee takes the participant off the event. A GUEST is also
// dropped from the guest registry. Either way the participant is removed
// from the attendee list of every term of the event.
func (s *EventService) RemoveAttendee(ctx context.Context, requester domain.Principal, eventUUID string, in AttendeeInput) (*domain.Event, error) {
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

	_, isGuest := event.FindGuest(target.ID)
	isGuest = isGuest && target.Kind == domain.KindGuest
	if target.Kind == domain.KindGuest && !isGuest && !event.Attendees.Contains(target) {
		return nil, apperrors.NewNotFoundError("Guest not found")
	}

	event.Attendees = event.Attendees.Without(target)
	if isGuest {
		event.RemoveGuest(target.ID)
	}
	event.UpdatedAt = s.now()
	if err := s.events.Update(ctx, event); err != nil {
		return nil, apperrors.NewInternalError("Failed to remove attendee", err)
	}

	terms, err := s.terms.RemoveAttendee(ctx, event.ID, target)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to remove attendee from terms", err)
	}
	s.cache.InvalidateEvent(ctx, event.ID)

	s.logger.Info("Attendee removed",
		append(attendeeFields(event.ID, target, requester), zap.Int64("terms_updated", terms))...)
	return event, nil
}
