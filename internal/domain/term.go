package domain

import "time"

// TeamResult is a manually entered tally for one team within a term
type TeamResult struct {
	Name    string     `json:"name" validate:"required,max=50"`
	Members []Attendee `json:"members"`
	Wins    int        `json:"wins" validate:"min=0"`
	Draws   int        `json:"draws" validate:"min=0"`
	Losses  int        `json:"losses" validate:"min=0"`
}

// Played is the number of games in the tally
func (t TeamResult) Played() int {
	return t.Wins + t.Draws + t.Losses
}

// Statistics holds the team tallies of a term
type Statistics struct {
	Teams []TeamResult `json:"teams" validate:"dive"`
}

// HasResults reports whether any team played at least one game
func (s *Statistics) HasResults() bool {
	if s == nil {
		return false
	}
	for _, t := range s.Teams {
		if t.Played() > 0 {
			return true
		}
	}
	return false
}

// Term is one dated occurrence of an event. Date is a calendar day at
// midnight UTC, see Day.
type Term struct {
	ID         string      `json:"id"`
	EventID    string      `json:"eventId"`
	Date       time.Time   `json:"date"`
	StartTime  string      `json:"startTime"`
	EndTime    string      `json:"endTime"`
	Attendees  Attendees   `json:"attendees"`
	Statistics *Statistics `json:"statistics,omitempty"`
}

// IsArchived reports whether the term's day lies strictly before today's
func (t *Term) IsArchived(today time.Time) bool {
	return Day(t.Date).Before(Day(today))
}
