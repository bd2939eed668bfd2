package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNil is returned by Get on a cache miss
var ErrNil = redis.Nil

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// Cache key patterns, always passed through KeyBuilder
const (
	KeyEventStats        = "stats:event:%s:%s" // stats:event:{eventID}:{version}
	KeyEventStatsAll     = "stats:event:*"     // every cached aggregate
	KeyEventStatsVersion = "stats:version:%s"  // stats:version:{eventID}
	KeyStatsGeneration   = "stats:generation"  // bumped by the archive sweep
	KeyTermGeneration    = "terms:generate:%s" // terms:generate:{eventID}
	KeyAuthRateLimit     = "ratelimit:auth:%s" // ratelimit:auth:{ipHash}
)

// TTL constants
const (
	TTLEventStats     = time.Hour        // default; overridable from config
	TTLTermGeneration = 30 * time.Second // lock held while a batch is inserted
)

// NewClient creates a new Redis client
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis. A miss returns ErrNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	dur := time.Since(start)
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Info("redis_get",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Duration("duration", dur),
			zap.Error(err))
	} else {
		c.log.Debug("redis_get",
			zap.String("key_prefix", prefixForLog(key)),
			zap.Bool("hit", err == nil),
			zap.Duration("duration", dur))
	}
	return val, err
}

// Set stores a value in Redis with TTL
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, ttl).Err()
	c.logResult("redis_set", key, time.Since(start), err)
	return err
}

// SetNX sets a value only if it doesn't exist
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	start := time.Now()
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	c.logResult("redis_setnx", key, time.Since(start), err, zap.Bool("result", ok))
	return ok, err
}

// Delete removes keys from Redis
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	c.log.Debug("redis_del",
		zap.Int("keys", len(keys)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err))
	return err
}

// IncrWindow increments a counter whose TTL is set when the window opens.
// Both commands run in one MULTI so a counter never exists without a TTL.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	start := time.Now()
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	var v int64
	if err == nil {
		v = incr.Val()
	}
	c.logResult("redis_incr_window", key, time.Since(start), err, zap.Int64("value", v))
	return v, err
}

// TTL returns the remaining time to live of a key
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

// Health checks the Redis connection
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	dur := time.Since(start)
	if err != nil {
		c.log.Info("redis_ping", zap.Duration("duration", dur), zap.Error(err))
	} else {
		c.log.Debug("redis_ping", zap.Duration("duration", dur))
	}
	return err
}

// InvalidatePattern removes keys matching a glob pattern. SCAN is used so a
// large keyspace does not block the server.
func (c *Client) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.log.Debug("redis_invalidate_pattern",
		zap.String("pattern", pattern),
		zap.Int("deleted", deleted))
	return deleted, nil
}

func (c *Client) logResult(op, key string, dur time.Duration, err error, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("key_prefix", prefixForLog(key)),
		zap.Duration("duration", dur),
	}, extra...)
	if err != nil {
		c.log.Info(op, append(fields, zap.Error(err))...)
		return
	}
	c.log.Debug(op, fields...)
}

// prefixForLog returns a safe prefix of a key to avoid logging PII
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}
