package service

import (
	"context"
	"time"

	ics "github.com/arran4/golang-ical"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
)

const calendarProductID = "-//Orgie//Events//EN"

// CalendarICS renders the active terms of an event as an iCalendar feed.
// Term times are wall clock times in loc; a nil loc means time.Local.
func (s *EventService) CalendarICS(ctx context.Context, eventUUID string, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	event, err := s.loadEventByUUID(ctx, eventUUID)
	if err != nil {
		return "", err
	}
	terms, err := s.terms.ListActive(ctx, event.ID, s.today())
	if err != nil {
		return "", apperrors.NewInternalError("Failed to load terms", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(event.Name)

	stamp := s.now().UTC()
	for _, term := range terms {
		start, err := domain.At(term.Date, term.StartTime, loc)
		if err != nil {
			continue
		}
		end, err := domain.At(term.Date, term.EndTime, loc)
		if err != nil {
			continue
		}
		// an end before the start runs past midnight
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}

		vevent := cal.AddEvent(term.ID)
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(event.Name)
		if event.Place != "" {
			vevent.SetLocation(event.Place)
		}
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
	}

	return cal.Serialize(), nil
}
