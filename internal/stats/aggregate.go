package stats

import (
	"fmt"
	"sort"
	"strings"

	"orgie/internal/domain"
)

// SortKey selects the column a stats list is ordered by
type SortKey string

const (
	SortAttendance    SortKey = "attendance"
	SortAttendancePct SortKey = "attendancePct"
	SortWins          SortKey = "wins"
	SortDraws         SortKey = "draws"
	SortLosses        SortKey = "losses"
	SortWinPct        SortKey = "winPct"
	SortLossPct       SortKey = "lossPct"
	SortName          SortKey = "name"
)

// Direction is asc or desc
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseSort validates sort parameters. Empty values mean attendance desc.
func ParseSort(key, dir string) (SortKey, Direction, error) {
	k := SortKey(key)
	switch k {
	case "":
		k = SortAttendance
	case SortAttendance, SortAttendancePct, SortWins, SortDraws, SortLosses, SortWinPct, SortLossPct, SortName:
	default:
		return "", "", fmt.Errorf("unknown sort key %q", key)
	}

	d := Direction(strings.ToLower(dir))
	switch d {
	case "":
		d = Desc
	case Asc, Desc:
	default:
		return "", "", fmt.Errorf("unknown sort direction %q", dir)
	}
	return k, d, nil
}

// Names resolves display names of USER and GUEST participants
type Names struct {
	event *domain.Event
	users map[string]*domain.User
}

// NewNames builds a resolver over an event's guest registry and a user set
func NewNames(event *domain.Event, users map[string]*domain.User) Names {
	return Names{event: event, users: users}
}

// Resolve returns the display name or domain.UnknownName
func (n Names) Resolve(a domain.Attendee) string {
	switch a.Kind {
	case domain.KindGuest:
		if n.event != nil {
			if g, ok := n.event.FindGuest(a.ID); ok {
				return g.DisplayName()
			}
		}
	case domain.KindUser:
		if u, ok := n.users[a.ID]; ok && u != nil {
			return u.DisplayName()
		}
	}
	return domain.UnknownName
}

type table struct {
	order []string
	rows  map[string]*domain.ParticipantStats
	names Names
}

func (t *table) get(a domain.Attendee) *domain.ParticipantStats {
	key := a.Key()
	if row, ok := t.rows[key]; ok {
		return row
	}
	row := &domain.ParticipantStats{ID: a.ID, Kind: a.Kind, Name: t.names.Resolve(a)}
	t.rows[key] = row
	t.order = append(t.order, key)
	return row
}

// Compute aggregates archived terms into one row per participant. Rows are
// seeded from the event attendees and guests so that inactive participants
// show up with zeros, then extended by anyone found in a term. The result is
// in first-seen order.
func Compute(event *domain.Event, archived []*domain.Term, names Names) []domain.ParticipantStats {
	t := &table{rows: make(map[string]*domain.ParticipantStats), names: names}

	if event != nil {
		for _, a := range event.Attendees {
			t.get(a)
		}
		for _, g := range event.Guests {
			t.get(domain.GuestAttendee(g.ID))
		}
	}

	for _, term := range archived {
		if term == nil {
			continue
		}
		for _, a := range term.Attendees {
			t.get(a).Attendance++
		}

		if !term.Statistics.HasResults() {
			continue
		}
		present := term.Attendees.Keys()
		outcomes := TermOutcomes(term.Statistics.Teams)
		for i, team := range term.Statistics.Teams {
			if outcomes[i] == domain.OutcomeNone {
				continue
			}
			for _, m := range team.Members {
				if _, ok := present[m.Key()]; !ok {
					continue
				}
				row := t.get(m)
				switch outcomes[i] {
				case domain.OutcomeWin:
					row.Wins++
				case domain.OutcomeDraw:
					row.Draws++
				case domain.OutcomeLoss:
					row.Losses++
				}
				row.TotalGames++
			}
		}
	}

	total := len(archived)
	out := make([]domain.ParticipantStats, 0, len(t.order))
	for _, key := range t.order {
		row := *t.rows[key]
		if total > 0 {
			row.AttendancePct = float64(row.Attendance) / float64(total) * 100
		}
		if row.TotalGames > 0 {
			row.WinPct = float64(row.Wins) / float64(row.TotalGames) * 100
			row.LossPct = float64(row.Losses) / float64(row.TotalGames) * 100
		}
		out = append(out, row)
	}
	return out
}

// Sort orders rows in place by key and direction. Equal rows keep their
// relative order.
func Sort(rows []domain.ParticipantStats, key SortKey, dir Direction) {
	compare := func(a, b domain.ParticipantStats) int {
		switch key {
		case SortName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortAttendancePct:
			return cmpFloat(a.AttendancePct, b.AttendancePct)
		case SortWins:
			return a.Wins - b.Wins
		case SortDraws:
			return a.Draws - b.Draws
		case SortLosses:
			return a.Losses - b.Losses
		case SortWinPct:
			return cmpFloat(a.WinPct, b.WinPct)
		case SortLossPct:
			return cmpFloat(a.LossPct, b.LossPct)
		default:
			return a.Attendance - b.Attendance
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j])
		if dir == Asc {
			return c < 0
		}
		return c > 0
	})
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Summarize computes the aggregate plus the counters and maxima shown with it.
// Participants are returned unsorted.
func Summarize(event *domain.Event, archived []*domain.Term, names Names) domain.StatsSummary {
	rows := Compute(event, archived, names)

	filled := 0
	for _, term := range archived {
		if term != nil && term.Statistics != nil && len(term.Statistics.Teams) > 0 {
			filled++
		}
	}

	return domain.StatsSummary{
		TotalArchivedTerms: len(archived),
		FilledStatsCount:   filled,
		Highlights:         highlights(rows),
		Participants:       rows,
	}
}

// highlights uses -1 for a column no row qualifies for. Game based columns
// only consider participants who played.
func highlights(rows []domain.ParticipantStats) domain.Highlights {
	h := domain.Highlights{MaxAttendance: -1, MaxWins: -1, MaxLosses: -1, MaxWinPct: -1, MaxLossPct: -1}
	for _, r := range rows {
		if r.Attendance > h.MaxAttendance {
			h.MaxAttendance = r.Attendance
		}
		if r.TotalGames == 0 {
			continue
		}
		if r.Wins > h.MaxWins {
			h.MaxWins = r.Wins
		}
		if r.Losses > h.MaxLosses {
			h.MaxLosses = r.Losses
		}
		if r.WinPct > h.MaxWinPct {
			h.MaxWinPct = r.WinPct
		}
		if r.LossPct > h.MaxLossPct {
			h.MaxLossPct = r.LossPct
		}
	}
	return h
}
