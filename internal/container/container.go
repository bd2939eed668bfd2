package container

import (
	"context"
	"fmt"

	"orgie/internal/config"
	"orgie/internal/repository"
	"orgie/internal/service"
	"orgie/internal/service/auth"
	"orgie/pkg/database"
	"orgie/pkg/logger"
	"orgie/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB
	RedisClient  *redis.Client
	Repositories *repository.Repositories
	Cache        *service.CacheService
	Events       *service.EventService
	Auth         *auth.Service
	Scheduler    *service.Scheduler
}

// New creates a new dependency injection container. Postgres is required
// when DATABASE_URL is set; Redis is optional and skipped on failure.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.DefaultPoolOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Repositories = repository.NewPostgresRepositories(db)
		log.Info("Postgres repositories initialized")
	} else {
		c.Repositories = repository.NewMemoryStore().Repositories()
		log.Warn("DATABASE_URL not configured, using in-memory store")
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	c.Cache = service.NewCacheService(c.RedisClient, cfg.StatsCacheTTL, log.Logger)

	opts := []service.Option{service.WithStatsCache(c.Cache)}
	if c.RedisClient != nil {
		opts = append(opts, service.WithGenerationLock(c.RedisClient))
	}
	c.Events = service.NewEventService(c.Repositories, log, opts...)

	c.Auth = auth.NewService(c.Repositories.Users, auth.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, log)

	scheduler, err := service.NewScheduler(cfg.ArchiveSweepSpec, c.Cache, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	c.Scheduler = scheduler

	return c, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasDatabase returns true when Postgres backs the repositories
func (c *Container) HasDatabase() bool {
	return c.DB != nil
}

// Close releases connections opened by New
func (c *Container) Close() {
	if c.RedisClient != nil {
		_ = c.RedisClient.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
