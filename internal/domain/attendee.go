package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AttendeeKind discriminates registered users from event-scoped guests
type AttendeeKind string

const (
	KindUser  AttendeeKind = "USER"
	KindGuest AttendeeKind = "GUEST"
)

// UnknownName is displayed for participants whose record no longer resolves
const UnknownName = "Unknown"

// ParseAttendeeKind parses a kind from user input. An empty value means USER.
func ParseAttendeeKind(s string) (AttendeeKind, error) {
	switch AttendeeKind(strings.ToUpper(strings.TrimSpace(s))) {
	case "", KindUser:
		return KindUser, nil
	case KindGuest:
		return KindGuest, nil
	default:
		return "", fmt.Errorf("unknown attendee kind %q", s)
	}
}

// Attendee references either a User (by user id) or a Guest embedded in the
// owning Event (by guest id). Two attendees are equal only when both the id
// and the kind match.
type Attendee struct {
	ID   string       `json:"id"`
	Kind AttendeeKind `json:"kind"`
}

// UserAttendee builds a USER attendee
func UserAttendee(id string) Attendee {
	return Attendee{ID: id, Kind: KindUser}
}

// GuestAttendee builds a GUEST attendee
func GuestAttendee(id string) Attendee {
	return Attendee{ID: id, Kind: KindGuest}
}

// Key is a stable map key for the (kind, id) pair
func (a Attendee) Key() string {
	return string(a.Kind) + ":" + a.ID
}

// Equal reports identity on both id and kind
func (a Attendee) Equal(other Attendee) bool {
	return a.ID == other.ID && a.Kind == other.Kind
}

// UnmarshalJSON accepts the legacy bare-id shape and a missing kind, both of
// which mean USER.
func (a *Attendee) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*a = UserAttendee(bare)
		return nil
	}

	type raw Attendee
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	kind, err := ParseAttendeeKind(string(r.Kind))
	if err != nil {
		return err
	}
	*a = Attendee{ID: r.ID, Kind: kind}
	return nil
}

// Attendees is an ordered attendee list with insertion order preserved
type Attendees []Attendee

// IndexOf returns the position of target or -1
func (l Attendees) IndexOf(target Attendee) int {
	for i, a := range l {
		if a.Equal(target) {
			return i
		}
	}
	return -1
}

// Contains reports membership of target
func (l Attendees) Contains(target Attendee) bool {
	return l.IndexOf(target) >= 0
}

// Toggle removes target if present and appends it otherwise. It returns a
// new slice and whether target is present afterwards.
func (l Attendees) Toggle(target Attendee) (Attendees, bool) {
	if i := l.IndexOf(target); i >= 0 {
		return l.Without(target), false
	}
	out := make(Attendees, len(l), len(l)+1)
	copy(out, l)
	return append(out, target), true
}

// Without returns a copy of the list with every occurrence of target removed
func (l Attendees) Without(target Attendee) Attendees {
	out := make(Attendees, 0, len(l))
	for _, a := range l {
		if !a.Equal(target) {
			out = append(out, a)
		}
	}
	return out
}

// Keys returns the set of attendee keys
func (l Attendees) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(l))
	for _, a := range l {
		keys[a.Key()] = struct{}{}
	}
	return keys
}
