package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgie/internal/domain"
)

func team(name string, w, d, l int, members ...domain.Attendee) domain.TeamResult {
	return domain.TeamResult{Name: name, Wins: w, Draws: d, Losses: l, Members: members}
}

func TestTermOutcomes(t *testing.T) {
	tests := []struct {
		name  string
		teams []domain.TeamResult
		want  []domain.Outcome
	}{
		{
			name:  "two teams tie for best record",
			teams: []domain.TeamResult{team("A", 3, 0, 1), team("B", 3, 0, 1), team("C", 2, 1, 1)},
			want:  []domain.Outcome{domain.OutcomeDraw, domain.OutcomeDraw, domain.OutcomeLoss},
		},
		{
			name:  "single best record wins",
			teams: []domain.TeamResult{team("A", 1, 0, 2), team("B", 2, 0, 1)},
			want:  []domain.Outcome{domain.OutcomeLoss, domain.OutcomeWin},
		},
		{
			name:  "draws break equal wins",
			teams: []domain.TeamResult{team("A", 2, 0, 0), team("B", 2, 1, 0)},
			want:  []domain.Outcome{domain.OutcomeLoss, domain.OutcomeWin},
		},
		{
			name:  "fewer losses break equal wins and draws",
			teams: []domain.TeamResult{team("A", 2, 1, 3), team("B", 2, 1, 2)},
			want:  []domain.Outcome{domain.OutcomeLoss, domain.OutcomeWin},
		},
		{
			name:  "team without games is excluded",
			teams: []domain.TeamResult{team("A", 0, 0, 0), team("B", 1, 0, 0)},
			want:  []domain.Outcome{domain.OutcomeNone, domain.OutcomeWin},
		},
		{
			name:  "nobody played",
			teams: []domain.TeamResult{team("A", 0, 0, 0)},
			want:  []domain.Outcome{domain.OutcomeNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TermOutcomes(tt.teams))
		})
	}
}

func rowFor(t *testing.T, rows []domain.ParticipantStats, a domain.Attendee) domain.ParticipantStats {
	t.Helper()
	for _, r := range rows {
		if r.ID == a.ID && r.Kind == a.Kind {
			return r
		}
	}
	require.Failf(t, "row not found", "%s", a.Key())
	return domain.ParticipantStats{}
}

func TestCompute(t *testing.T) {
	alice := domain.UserAttendee("alice")
	bob := domain.UserAttendee("bob")
	carl := domain.UserAttendee("carl")
	idle := domain.UserAttendee("idle")
	guest := domain.GuestAttendee("g1")

	event := &domain.Event{
		Attendees: domain.Attendees{idle, alice},
		Guests:    []domain.Guest{{ID: "g1", FirstName: "Gus", LastName: "Guest", AddedBy: "alice"}},
	}
	users := map[string]*domain.User{
		"alice": {ID: "alice", FirstName: "Alice", LastName: "A"},
		"bob":   {ID: "bob", Nickname: "Bobby", PreferNickname: true},
	}

	archived := []*domain.Term{
		{
			ID:        "t1",
			Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Attendees: domain.Attendees{alice, bob, guest},
			Statistics: &domain.Statistics{Teams: []domain.TeamResult{
				team("Red", 2, 0, 0, alice, guest),
				// carl no longer attends t1, his membership must be ignored
				team("Blue", 0, 0, 2, bob, carl),
			}},
		},
		{
			ID:        "t2",
			Date:      time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Attendees: domain.Attendees{alice, bob},
			Statistics: &domain.Statistics{Teams: []domain.TeamResult{
				team("Red", 1, 1, 0, alice),
				team("Blue", 1, 1, 0, bob),
			}},
		},
		{
			ID:        "t3",
			Date:      time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			Attendees: domain.Attendees{alice},
		},
		{
			ID:        "t4",
			Date:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Attendees: domain.Attendees{alice, bob},
			Statistics: &domain.Statistics{Teams: []domain.TeamResult{
				team("Red", 0, 0, 0, alice),
			}},
		},
	}

	rows := Compute(event, archived, NewNames(event, users))

	require.Len(t, rows, 4, "idle, alice, guest, bob; carl never attended")
	assert.Equal(t, idle, domain.Attendee{ID: rows[0].ID, Kind: rows[0].Kind}, "seeded rows come first")

	a := rowFor(t, rows, alice)
	assert.Equal(t, "Alice A", a.Name)
	assert.Equal(t, 4, a.Attendance)
	assert.InDelta(t, 100.0, a.AttendancePct, 0.001)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.Draws)
	assert.Equal(t, 0, a.Losses)
	assert.Equal(t, 2, a.TotalGames)
	assert.InDelta(t, 50.0, a.WinPct, 0.001)

	b := rowFor(t, rows, bob)
	assert.Equal(t, "Bobby", b.Name)
	assert.Equal(t, 3, b.Attendance)
	assert.Equal(t, 1, b.Losses)
	assert.Equal(t, 1, b.Draws)
	assert.InDelta(t, 50.0, b.LossPct, 0.001)

	g := rowFor(t, rows, guest)
	assert.Equal(t, "Gus Guest", g.Name)
	assert.Equal(t, 1, g.Attendance)
	assert.Equal(t, 1, g.Wins)

	i := rowFor(t, rows, idle)
	assert.Equal(t, domain.UnknownName, i.Name)
	assert.Zero(t, i.Attendance)
	assert.Zero(t, i.WinPct)
	assert.Zero(t, i.LossPct)
}

func TestCompute_NoArchivedTerms(t *testing.T) {
	event := &domain.Event{Attendees: domain.Attendees{domain.UserAttendee("u")}}

	rows := Compute(event, nil, NewNames(event, nil))
	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].AttendancePct)
}

func TestSort(t *testing.T) {
	rows := []domain.ParticipantStats{
		{ID: "1", Name: "carol", Attendance: 2, WinPct: 10},
		{ID: "2", Name: "Alice", Attendance: 5, WinPct: 50},
		{ID: "3", Name: "bob", Attendance: 2, WinPct: 90},
	}

	Sort(rows, SortAttendance, Desc)
	assert.Equal(t, []string{"2", "1", "3"}, ids(rows), "ties keep prior order")

	Sort(rows, SortName, Asc)
	assert.Equal(t, []string{"2", "3", "1"}, ids(rows))

	Sort(rows, SortWinPct, Desc)
	assert.Equal(t, []string{"3", "2", "1"}, ids(rows))
}

func ids(rows []domain.ParticipantStats) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestParseSort(t *testing.T) {
	k, d, err := ParseSort("", "")
	require.NoError(t, err)
	assert.Equal(t, SortAttendance, k)
	assert.Equal(t, Desc, d)

	k, d, err = ParseSort("winPct", "ASC")
	require.NoError(t, err)
	assert.Equal(t, SortWinPct, k)
	assert.Equal(t, Asc, d)

	_, _, err = ParseSort("height", "asc")
	assert.Error(t, err)
	_, _, err = ParseSort("wins", "sideways")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	alice := domain.UserAttendee("alice")
	archived := []*domain.Term{
		{Attendees: domain.Attendees{alice}, Statistics: &domain.Statistics{Teams: []domain.TeamResult{team("A", 1, 0, 0, alice)}}},
		{Attendees: domain.Attendees{alice}},
		{Attendees: domain.Attendees{}, Statistics: &domain.Statistics{Teams: []domain.TeamResult{team("A", 0, 0, 0)}}},
	}

	s := Summarize(&domain.Event{}, archived, NewNames(nil, nil))
	assert.Equal(t, 3, s.TotalArchivedTerms)
	assert.Equal(t, 2, s.FilledStatsCount)
	assert.Equal(t, 2, s.Highlights.MaxAttendance)
	assert.Equal(t, 1, s.Highlights.MaxWins)
	assert.InDelta(t, 100.0, s.Highlights.MaxWinPct, 0.001)

	empty := Summarize(&domain.Event{}, nil, NewNames(nil, nil))
	assert.Equal(t, -1, empty.Highlights.MaxAttendance)
	assert.Equal(t, -1, empty.Highlights.MaxWins)
}

func TestPreview(t *testing.T) {
	out := Preview(&domain.Statistics{Teams: []domain.TeamResult{team("A", 3, 0, 1), team("B", 3, 0, 1), team("C", 2, 1, 1)}})
	require.Len(t, out, 3)
	assert.Equal(t, domain.OutcomeDraw, out[0].Outcome)
	assert.Equal(t, 4, out[2].Played)
	assert.Empty(t, Preview(nil))
}
