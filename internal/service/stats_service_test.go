package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/logger"
)

func findRow(rows []domain.ParticipantStats, kind domain.AttendeeKind, id string) *domain.ParticipantStats {
	for i := range rows {
		if rows[i].ID == id && rows[i].Kind == kind {
			return &rows[i]
		}
	}
	return nil
}

func TestEventStats(t *testing.T) {
	f := newFixture(t, 2024, 3, 10)
	ctx := context.Background()
	require.NoError(t, f.repos.Users.Create(ctx, &domain.User{ID: "u1", FirstName: "Ann", LastName: "A"}))
	require.NoError(t, f.repos.Users.Create(ctx, &domain.User{ID: "u2", Nickname: "Bobby", PreferNickname: true, FirstName: "Bob"}))

	event := f.recurringEvent(t, 0)
	_, err := f.svc.ToggleEventAttendance(ctx, domain.Principal{ID: "idle"}, event.UUID, AttendeeInput{})
	require.NoError(t, err)
	_, guest, err := f.svc.AddGuest(ctx, owner, event.UUID, GuestInput{FirstName: "Gus"})
	require.NoError(t, err)

	u1, u2, g := domain.UserAttendee("u1"), domain.UserAttendee("u2"), domain.GuestAttendee(guest.ID)
	first := f.addTerm(t, event, "t1", f.today.AddDate(0, 0, -14), u1, u2, g)
	f.addTerm(t, event, "t2", f.today.AddDate(0, 0, -7), u1)
	f.addTerm(t, event, "t3", f.today, u1, u2)

	_, err = f.svc.SaveStatistics(ctx, owner, first.ID, &domain.Statistics{Teams: []domain.TeamResult{
		{Name: "Red", Members: []domain.Attendee{u1, domain.UserAttendee("left")}, Wins: 2},
		{Name: "Blue", Members: []domain.Attendee{u2, g}, Wins: 1, Losses: 1},
	}})
	require.NoError(t, err)

	summary, err := f.svc.EventStats(ctx, event.UUID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalArchivedTerms)
	assert.Equal(t, 1, summary.FilledStatsCount)

	ann := findRow(summary.Participants, domain.KindUser, "u1")
	require.NotNil(t, ann)
	assert.Equal(t, "Ann A", ann.Name)
	assert.Equal(t, 2, ann.Attendance)
	assert.InDelta(t, 100, ann.AttendancePct, 0.001)
	assert.Equal(t, 1, ann.Wins)
	assert.InDelta(t, 100, ann.WinPct, 0.001)

	bob := findRow(summary.Participants, domain.KindUser, "u2")
	require.NotNil(t, bob)
	assert.Equal(t, "Bobby", bob.Name)
	assert.Equal(t, 1, bob.Losses)

	gus := findRow(summary.Participants, domain.KindGuest, guest.ID)
	require.NotNil(t, gus)
	assert.Equal(t, "Gus", gus.Name)
	assert.Equal(t, 1, gus.Attendance)
	assert.Equal(t, 1, gus.Losses)

	idle := findRow(summary.Participants, domain.KindUser, "idle")
	require.NotNil(t, idle, "event attendees are seeded")
	assert.Zero(t, idle.Attendance)
	assert.Equal(t, domain.UnknownName, idle.Name)

	assert.Nil(t, findRow(summary.Participants, domain.KindUser, "left"), "team members who did not attend are ignored")

	assert.Equal(t, "u1", summary.Participants[0].ID, "default sort is attendance desc")
	assert.Equal(t, 2, summary.Highlights.MaxAttendance)
	assert.Equal(t, 1, summary.Highlights.MaxWins)

	byName, err := f.svc.EventStats(ctx, event.UUID, "name", "asc")
	require.NoError(t, err)
	assert.Equal(t, "Ann A", byName.Participants[0].Name)

	_, err = f.svc.EventStats(ctx, event.UUID, "height", "")
	assertErrorType(t, err, apperrors.ErrorTypeValidation)
	_, err = f.svc.EventStats(ctx, "nope", "", "")
	assertErrorType(t, err, apperrors.ErrorTypeNotFound)
}

func TestEventStats_CachedAndInvalidated(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, zap.NewNop())
	f := newFixture(t, 2024, 3, 10, WithStatsCache(cache))
	ctx := context.Background()

	event := f.recurringEvent(t, 0)
	f.addTerm(t, event, "t1", f.today.AddDate(0, 0, -7), domain.UserAttendee("u1"))

	summary, err := f.svc.EventStats(ctx, event.UUID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalArchivedTerms)

	key := client.KeyBuilder.KeyEventStats(event.ID, "0.0")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// writes behind the service are not visible until the entry is dropped
	f.addTerm(t, event, "t2", f.today.AddDate(0, 0, -14))
	cached, err := f.svc.EventStats(ctx, event.UUID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalArchivedTerms)

	require.NoError(t, f.svc.DeleteTerm(ctx, owner, "t1"))
	assert.True(t, mr.Exists(client.KeyBuilder.KeyEventStatsVersion(event.ID)))

	fresh, err := f.svc.EventStats(ctx, event.UUID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.TotalArchivedTerms)
	assert.Nil(t, findRow(fresh.Participants, domain.KindUser, "u1"))
}

func TestScheduler_SweepInvalidatesAllStats(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Hour, nil)
	kb := client.KeyBuilder

	require.NoError(t, mr.Set(kb.KeyEventStats("e1", "0.0"), "{}"))
	require.NoError(t, mr.Set(kb.KeyEventStats("e2", "0.0"), "{}"))
	require.NoError(t, mr.Set(kb.KeyTermGeneration("e1"), "1"))

	scheduler, err := NewScheduler("", cache, logger.NewNop())
	require.NoError(t, err)
	scheduler.SweepArchiveBoundary()

	assert.False(t, mr.Exists(kb.KeyEventStats("e1", "0.0")))
	assert.False(t, mr.Exists(kb.KeyEventStats("e2", "0.0")))
	assert.True(t, mr.Exists(kb.KeyTermGeneration("e1")), "other keys survive")
	assert.True(t, mr.Exists(kb.KeyStatsGeneration()))

	scheduler.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, scheduler.Stop(ctx))

	_, err = NewScheduler("not a schedule", cache, nil)
	assert.Error(t, err)
}

func TestCalendarICS(t *testing.T) {
	f := newFixture(t, 2024, 3, 10)
	ctx := context.Background()
	event := f.recurringEvent(t, 0)
	f.addTerm(t, event, "past-term", f.today.AddDate(0, 0, -7))
	f.addTerm(t, event, "next-term", f.today.AddDate(0, 0, 7))

	body, err := f.svc.CalendarICS(ctx, event.UUID, time.UTC)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR"))
	assert.Contains(t, body, "UID:next-term")
	assert.NotContains(t, body, "past-term")
	assert.Contains(t, body, "SUMMARY:Futsal")
	assert.Contains(t, body, "LOCATION:Gym")
	assert.Contains(t, body, "20240317T180000Z")
	assert.Contains(t, body, "20240317T193000Z")

	_, err = f.svc.CalendarICS(ctx, "nope", nil)
	assertErrorType(t, err, apperrors.ErrorTypeNotFound)
}
