package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"orgie/internal/domain"
	"orgie/pkg/redis"
)

// statsComputeTimeout bounds a shared computation once it no longer follows
// the request that started it
const statsComputeTimeout = 30 * time.Second

// versionRetention keeps version tokens alive well past any aggregate
// stored under them
const versionRetention = 24 * time.Hour

// CacheService provides cache-aside storage of event statistics. Aggregates
// are stored under the event's current version token, so an invalidation
// orphans every entry computed before it, including ones still in flight. A
// nil redis client turns it into a pass-through that still collapses
// concurrent misses.
type CacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CacheService {
	if ttl <= 0 {
		ttl = redis.TTLEventStats
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// GetStats retrieves the summary with cache-aside pattern. Cache errors are
// logged and fall through to compute.
func (c *CacheService) GetStats(ctx context.Context, eventID string, compute func(ctx context.Context) (*domain.StatsSummary, error)) (*domain.StatsSummary, error) {
	key, cacheable := c.statsKey(ctx, eventID)
	flight := eventID
	if cacheable {
		if cached, ok := c.lookup(ctx, eventID, key); ok {
			return cached, nil
		}
		flight = key
	}

	v, err, shared := c.group.Do(flight, func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsComputeTimeout)
		defer cancel()

		summary, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.store(computeCtx, eventID, key, summary)
		}
		return summary, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stats computation failed: %w", err)
	}
	if shared {
		c.logger.Debug("Stats computation shared", zap.String("event_id", eventID))
	}
	return copySummary(v.(*domain.StatsSummary)), nil
}

// statsKey resolves the key of the current aggregate. It must be read before
// computing so that a concurrent invalidation moves readers to a new key.
func (c *CacheService) statsKey(ctx context.Context, eventID string) (string, bool) {
	if c.redis == nil {
		return "", false
	}
	generation, err := c.token(ctx, c.redis.KeyBuilder.KeyStatsGeneration())
	if err != nil {
		c.logger.Warn("Stats cache error, computing", zap.String("event_id", eventID), zap.Error(err))
		return "", false
	}
	version, err := c.token(ctx, c.redis.KeyBuilder.KeyEventStatsVersion(eventID))
	if err != nil {
		c.logger.Warn("Stats cache error, computing", zap.String("event_id", eventID), zap.Error(err))
		return "", false
	}
	return c.redis.KeyBuilder.KeyEventStats(eventID, generation+"."+version), true
}

// token reads a version token; a missing one is "0"
func (c *CacheService) token(ctx context.Context, key string) (string, error) {
	v, err := c.redis.Get(ctx, key)
	if errors.Is(err, redis.ErrNil) {
		return "0", nil
	}
	return v, err
}

// bump replaces a version token with a fresh one
func (c *CacheService) bump(ctx context.Context, key string) error {
	return c.redis.Set(ctx, key, uuid.NewString(), c.ttl+versionRetention)
}

func (c *CacheService) lookup(ctx context.Context, eventID, key string) (*domain.StatsSummary, bool) {
	data, err := c.redis.Get(ctx, key)
	if errors.Is(err, redis.ErrNil) {
		c.logger.Debug("Stats cache miss", zap.String("event_id", eventID))
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Stats cache error, computing", zap.String("event_id", eventID), zap.Error(err))
		return nil, false
	}

	var summary domain.StatsSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		c.logger.Warn("Stats cache corrupted, computing", zap.String("event_id", eventID), zap.Error(err))
		return nil, false
	}
	c.logger.Debug("Stats cache hit", zap.String("event_id", eventID))
	return &summary, true
}

func (c *CacheService) store(ctx context.Context, eventID, key string, summary *domain.StatsSummary) {
	if summary == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("Failed to marshal stats for cache", zap.String("event_id", eventID), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache stats", zap.String("event_id", eventID), zap.Error(err))
	}
}

// InvalidateEvent moves eventID to a new version. Aggregates stored under
// the old one are never read again and expire with their TTL.
func (c *CacheService) InvalidateEvent(ctx context.Context, eventID string) {
	if c.redis == nil {
		return
	}
	if err := c.bump(ctx, c.redis.KeyBuilder.KeyEventStatsVersion(eventID)); err != nil {
		c.logger.Warn("Failed to invalidate stats cache", zap.String("event_id", eventID), zap.Error(err))
	}
}

// InvalidateAll moves every event to a new generation and removes the cached
// summaries, reporting how many were removed
func (c *CacheService) InvalidateAll(ctx context.Context) (int, error) {
	if c.redis == nil {
		return 0, nil
	}
	if err := c.bump(ctx, c.redis.KeyBuilder.KeyStatsGeneration()); err != nil {
		return 0, fmt.Errorf("failed to bump stats generation: %w", err)
	}
	return c.redis.InvalidatePattern(ctx, c.redis.KeyBuilder.KeyEventStatsAll())
}

// copySummary keeps callers that re-sort participants from sharing a slice
func copySummary(s *domain.StatsSummary) *domain.StatsSummary {
	out := *s
	out.Participants = append([]domain.ParticipantStats(nil), s.Participants...)
	return &out
}
