package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgie/internal/domain"
	"orgie/pkg/redis"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheService_CorruptEntryFallsBack(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, mr.Set(client.KeyBuilder.KeyEventStats("e1", "0.0"), "{not json"))

	calls := 0
	summary, err := cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
		calls++
		return &domain.StatsSummary{TotalArchivedTerms: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalArchivedTerms)
	assert.Equal(t, 1, calls)

	_, err = cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call is served from cache")
}

func TestCacheService_WithoutRedis(t *testing.T) {
	cache := NewCacheService(nil, 0, nil)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*domain.StatsSummary, error) {
		calls++
		return &domain.StatsSummary{Participants: []domain.ParticipantStats{{ID: "a"}, {ID: "b"}}}, nil
	}
	first, err := cache.GetStats(ctx, "e1", compute)
	require.NoError(t, err)
	first.Participants[0].ID = "changed"

	second, err := cache.GetStats(ctx, "e1", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "nothing is cached without redis")
	assert.Equal(t, "a", second.Participants[0].ID)

	cache.InvalidateEvent(ctx, "e1")
	n, err := cache.InvalidateAll(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestCacheService_ComputeErrorIsReturned(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, nil)
	boom := errors.New("boom")

	_, err := cache.GetStats(context.Background(), "e1", func(context.Context) (*domain.StatsSummary, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCacheService_InvalidateEvent(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, nil)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*domain.StatsSummary, error) {
		calls++
		return &domain.StatsSummary{TotalArchivedTerms: calls}, nil
	}

	_, err := cache.GetStats(ctx, "e1", compute)
	require.NoError(t, err)
	require.True(t, mr.Exists(client.KeyBuilder.KeyEventStats("e1", "0.0")))

	cache.InvalidateEvent(ctx, "e1")
	versionKey := client.KeyBuilder.KeyEventStatsVersion("e1")
	require.True(t, mr.Exists(versionKey))
	assert.Equal(t, time.Minute+versionRetention, mr.TTL(versionKey))

	summary, err := cache.GetStats(ctx, "e1", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalArchivedTerms)

	summary, err = cache.GetStats(ctx, "e1", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalArchivedTerms, "new version is cached")
}

func TestCacheService_InvalidateDuringCompute(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan *domain.StatsSummary, 1)
	go func() {
		summary, err := cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
			close(started)
			<-release
			return &domain.StatsSummary{TotalArchivedTerms: 1}, nil
		})
		assert.NoError(t, err)
		done <- summary
	}()

	<-started
	cache.InvalidateEvent(ctx, "e1")
	close(release)

	inFlight := <-done
	require.NotNil(t, inFlight)
	assert.Equal(t, 1, inFlight.TotalArchivedTerms)

	fresh, err := cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
		return &domain.StatsSummary{TotalArchivedTerms: 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalArchivedTerms, "summary computed before the invalidation is not served")
}

func TestCacheService_SweepDuringCompute(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewCacheService(client, time.Minute, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
			close(started)
			<-release
			return &domain.StatsSummary{TotalArchivedTerms: 1}, nil
		})
		assert.NoError(t, err)
	}()

	<-started
	_, err := cache.InvalidateAll(ctx)
	require.NoError(t, err)
	close(release)
	<-done

	fresh, err := cache.GetStats(ctx, "e1", func(context.Context) (*domain.StatsSummary, error) {
		return &domain.StatsSummary{TotalArchivedTerms: 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalArchivedTerms)
}

func TestCacheService_ComputeIgnoresCallerCancel(t *testing.T) {
	cache := NewCacheService(nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := cache.GetStats(ctx, "e1", func(ctx context.Context) (*domain.StatsSummary, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "shared compute runs under its own timeout")
		return &domain.StatsSummary{TotalArchivedTerms: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalArchivedTerms)
}
