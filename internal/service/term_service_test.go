package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgie/internal/domain"
	apperrors "orgie/pkg/errors"
	"orgie/pkg/redis"
)

func TestGenerateTerms_MondayWednesday(t *testing.T) {
	f := newFixture(t, 2023, 12, 20)
	ctx := context.Background()
	event := f.recurringEvent(t, 1, 3)

	res, err := f.svc.GenerateTerms(ctx, owner, GenerateInput{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, GenerateResult{Inserted: 4, Skipped: 0, Total: 4}, *res)

	terms, err := f.repos.Terms.ListActive(ctx, event.ID, f.today)
	require.NoError(t, err)
	dates := make([]string, 0, len(terms))
	for _, term := range terms {
		dates = append(dates, term.Date.Format(domain.DateLayout))
		assert.Equal(t, "18:00", term.StartTime)
		assert.Equal(t, "19:30", term.EndTime)
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"}, dates)
}

func TestGenerateTerms_Idempotent(t *testing.T) {
	f := newFixture(t, 2023, 12, 20)
	ctx := context.Background()
	event := f.recurringEvent(t, 1, 3)
	in := GenerateInput{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-10"}

	_, err := f.svc.GenerateTerms(ctx, admin, in)
	require.NoError(t, err)

	terms, err := f.repos.Terms.ListActive(ctx, event.ID, f.today)
	require.NoError(t, err)
	_, err = f.svc.ToggleTermAttendance(ctx, member, terms[0].ID, AttendeeInput{})
	require.NoError(t, err)

	res, err := f.svc.GenerateTerms(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, GenerateResult{Inserted: 0, Skipped: 4, Total: 4}, *res)

	again, err := f.repos.Terms.ListActive(ctx, event.ID, f.today)
	require.NoError(t, err)
	assert.Len(t, again, 4)
	assert.Equal(t, domain.Attendees{domain.UserAttendee(member.ID)}, again[0].Attendees, "existing attendance untouched")
}

func TestGenerateTerms_PartialOverlap(t *testing.T) {
	f := newFixture(t, 2023, 12, 20)
	ctx := context.Background()
	event := f.recurringEvent(t, 1, 3)

	_, err := f.svc.GenerateTerms(ctx, owner, GenerateInput{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-03"})
	require.NoError(t, err)

	res, err := f.svc.GenerateTerms(ctx, owner, GenerateInput{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-10"})
	require.NoError(t, err)
	assert.Equal(t, GenerateResult{Inserted: 2, Skipped: 2, Total: 4}, *res)
}

func TestGenerateTerms_Errors(t *testing.T) {
	f := newFixture(t, 2023, 12, 20)
	ctx := context.Background()
	recurring := f.recurringEvent(t, 1)
	oneTime, err := f.svc.CreateEvent(ctx, owner, EventInput{
		Name: "Cup", Type: domain.EventTypeOneTime, StartTime: "10:00", EndTime: "12:00", Date: "2024-01-05",
	})
	require.NoError(t, err)

	tests := []struct {
		name      string
		requester domain.Principal
		input     GenerateInput
		want      apperrors.ErrorType
	}{
		{"stranger", stranger, GenerateInput{EventID: recurring.ID, StartDate: "2024-01-01", EndDate: "2024-01-31"}, apperrors.ErrorTypeAuthorization},
		{"one time event", owner, GenerateInput{EventID: oneTime.ID, StartDate: "2024-01-01", EndDate: "2024-01-31"}, apperrors.ErrorTypeInvalidState},
		{"missing event", owner, GenerateInput{EventID: "nope", StartDate: "2024-01-01", EndDate: "2024-01-31"}, apperrors.ErrorTypeNotFound},
		{"bad date", owner, GenerateInput{EventID: recurring.ID, StartDate: "someday", EndDate: "2024-01-31"}, apperrors.ErrorTypeValidation},
		{"missing fields", owner, GenerateInput{EventID: recurring.ID}, apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GenerateTerms(ctx, tt.requester, tt.input)
			assertErrorType(t, err, tt.want)
		})
	}
}

func TestGenerateTerms_EmptyRanges(t *testing.T) {
	f := newFixture(t, 2023, 12, 20)
	ctx := context.Background()
	event := f.recurringEvent(t, 0)

	for _, in := range []GenerateInput{
		{EventID: event.ID, StartDate: "2024-01-10", EndDate: "2024-01-01"},
		{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-06"},
	} {
		res, err := f.svc.GenerateTerms(ctx, owner, in)
		require.NoError(t, err)
		assert.Equal(t, GenerateResult{}, *res)
	}
}

func TestGenerateTerms_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, 2023, 12, 20, WithGenerationLock(client))
	ctx := context.Background()
	event := f.recurringEvent(t, 1)
	in := GenerateInput{EventID: event.ID, StartDate: "2024-01-01", EndDate: "2024-01-31"}

	held := client.KeyBuilder.KeyTermGeneration(event.ID)
	require.NoError(t, mr.Set(held, "1"))
	_, err = f.svc.GenerateTerms(ctx, owner, in)
	assertErrorType(t, err, apperrors.ErrorTypeConflict)

	mr.Del(held)
	res, err := f.svc.GenerateTerms(ctx, owner, in)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Inserted)
	assert.False(t, mr.Exists(held), "lock released")
}

func TestDeleteTerm(t *testing.T) {
	f := newFixture(t, 2024, 1, 1)
	ctx := context.Background()
	event := f.recurringEvent(t, 1)
	f.addTerm(t, event, "t1", f.today)

	assertErrorType(t, f.svc.DeleteTerm(ctx, member, "t1"), apperrors.ErrorTypeAuthorization)
	assertErrorType(t, f.svc.DeleteTerm(ctx, owner, "nope"), apperrors.ErrorTypeNotFound)
	require.NoError(t, f.svc.DeleteTerm(ctx, admin, "t1"))

	term, err := f.repos.Terms.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, term)
}

func TestSaveStatisticsAndPreview(t *testing.T) {
	f := newFixture(t, 2024, 1, 1)
	ctx := context.Background()
	event := f.recurringEvent(t, 1)
	f.addTerm(t, event, "t1", f.today.AddDate(0, 0, -7))

	statistics := &domain.Statistics{Teams: []domain.TeamResult{
		{Name: "A", Wins: 3, Losses: 1},
		{Name: "B", Wins: 3, Losses: 1},
		{Name: "C", Wins: 2, Draws: 1, Losses: 1},
	}}

	_, err := f.svc.SaveStatistics(ctx, member, "t1", statistics)
	assertErrorType(t, err, apperrors.ErrorTypeAuthorization)

	_, err = f.svc.SaveStatistics(ctx, owner, "t1", &domain.Statistics{Teams: []domain.TeamResult{{Name: "", Wins: 1}}})
	assertErrorType(t, err, apperrors.ErrorTypeValidation)

	_, err = f.svc.SaveStatistics(ctx, owner, "t1", &domain.Statistics{Teams: []domain.TeamResult{{Name: "A", Wins: -1}}})
	assertErrorType(t, err, apperrors.ErrorTypeValidation)

	term, err := f.svc.SaveStatistics(ctx, owner, "t1", statistics)
	require.NoError(t, err)
	assert.Equal(t, statistics, term.Statistics)

	stored, err := f.repos.Terms.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored.Statistics)
	assert.Len(t, stored.Statistics.Teams, 3)

	preview, err := f.svc.PreviewOutcomes(ctx, "t1", statistics)
	require.NoError(t, err)
	require.Len(t, preview, 3)
	assert.Equal(t, domain.OutcomeDraw, preview[0].Outcome)
	assert.Equal(t, domain.OutcomeDraw, preview[1].Outcome)
	assert.Equal(t, domain.OutcomeLoss, preview[2].Outcome)
}
