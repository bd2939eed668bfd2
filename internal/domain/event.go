package domain

import (
	"time"
)

// EventType distinguishes single occurrences from recurring series
type EventType string

const (
	EventTypeOneTime   EventType = "ONE_TIME"
	EventTypeRecurring EventType = "RECURRING"
)

// RecurrenceFrequency is recorded for display; term generation only looks at
// WeekDays.
type RecurrenceFrequency string

const (
	FrequencyDaily   RecurrenceFrequency = "DAILY"
	FrequencyWeekly  RecurrenceFrequency = "WEEKLY"
	FrequencyMonthly RecurrenceFrequency = "MONTHLY"
)

// Recurrence describes a RECURRING event. WeekDays uses 0 for Sunday.
type Recurrence struct {
	Frequency RecurrenceFrequency `json:"frequency" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY"`
	WeekDays  []int               `json:"weekDays,omitempty" validate:"omitempty,dive,min=0,max=6"`
	MonthDays []int               `json:"monthDays,omitempty" validate:"omitempty,dive,min=1,max=31"`
}

// Guest is an event-scoped participant without an account. AddedBy is the
// patron who registered the guest.
type Guest struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AddedBy   string `json:"addedBy"`
}

// DisplayName returns "first last"
func (g Guest) DisplayName() string {
	return joinName(g.FirstName, g.LastName)
}

// Event owns its guests and is the parent of zero or more terms
type Event struct {
	ID             string      `json:"id"`
	UUID           string      `json:"uuid"`
	Name           string      `json:"name"`
	Place          string      `json:"place,omitempty"`
	OwnerID        string      `json:"ownerId"`
	Type           EventType   `json:"type"`
	StartTime      string      `json:"startTime"`
	EndTime        string      `json:"endTime"`
	Date           *time.Time  `json:"date,omitempty"`
	Recurrence     *Recurrence `json:"recurrence,omitempty"`
	Administrators []string    `json:"administrators"`
	Attendees      Attendees   `json:"attendees"`
	Guests         []Guest     `json:"guests"`
	MinAttendees   int         `json:"minAttendees"`
	MaxAttendees   int         `json:"maxAttendees"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// IsOwner reports whether userID owns the event
func (e *Event) IsOwner(userID string) bool {
	return userID != "" && e.OwnerID == userID
}

// IsManager reports owner or administrator privilege
func (e *Event) IsManager(userID string) bool {
	if e.IsOwner(userID) {
		return true
	}
	for _, id := range e.Administrators {
		if id == userID {
			return true
		}
	}
	return false
}

// EnsureOwnerAdministrator keeps the owner in the administrator set and drops
// duplicates while preserving order.
func (e *Event) EnsureOwnerAdministrator() {
	seen := make(map[string]struct{}, len(e.Administrators)+1)
	admins := make([]string, 0, len(e.Administrators)+1)
	for _, id := range e.Administrators {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		admins = append(admins, id)
	}
	if _, ok := seen[e.OwnerID]; !ok && e.OwnerID != "" {
		admins = append(admins, e.OwnerID)
	}
	e.Administrators = admins
}

// FindGuest looks a guest up in the event registry
func (e *Event) FindGuest(id string) (*Guest, bool) {
	for i := range e.Guests {
		if e.Guests[i].ID == id {
			return &e.Guests[i], true
		}
	}
	return nil, false
}

// IsPatron reports whether userID registered the guest guestID
func (e *Event) IsPatron(userID, guestID string) bool {
	g, ok := e.FindGuest(guestID)
	return ok && userID != "" && g.AddedBy == userID
}

// RemoveGuest drops the guest from the registry
func (e *Event) RemoveGuest(id string) {
	guests := make([]Guest, 0, len(e.Guests))
	for _, g := range e.Guests {
		if g.ID != id {
			guests = append(guests, g)
		}
	}
	e.Guests = guests
}

// HasWeekDays reports whether the event can generate terms
func (e *Event) HasWeekDays() bool {
	return e.Type == EventTypeRecurring && e.Recurrence != nil && len(e.Recurrence.WeekDays) > 0
}
