package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devJWTSecret = "orgie-development-secret"

// Config holds all configuration values for the application
type Config struct {
	Port             string        `yaml:"port"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	LogLevel         string        `yaml:"log_level"`
	DatabaseURL      string        `yaml:"database_url"`
	RedisURL         string        `yaml:"redis_url"`
	Environment      string        `yaml:"environment"`
	JWTSecret        string        `yaml:"jwt_secret"`
	JWTRefreshSecret string        `yaml:"jwt_refresh_secret"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`
	CookieSecure     bool          `yaml:"cookie_secure"`
	StatsCacheTTL    time.Duration `yaml:"stats_cache_ttl"`
	AuthRateLimit    int           `yaml:"auth_rate_limit"`
	AuthRateWindow   time.Duration `yaml:"auth_rate_window"`
	ArchiveSweepSpec string        `yaml:"archive_sweep_spec"`

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:             "8080",
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		LogLevel:         "info",
		Environment:      "development",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		StatsCacheTTL:    time.Hour,
		AuthRateLimit:    100,
		AuthRateWindow:   15 * time.Minute,
		ArchiveSweepSpec: "0 0 * * *",
	}
}

// Load loads configuration from defaults, the optional YAML file named by
// CONFIG_FILE and environment variables, in that order
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = parseOrigins(origins)
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTRefreshSecret = getEnv("JWT_REFRESH_SECRET", c.JWTRefreshSecret)
	c.CookieSecure = getBoolEnv("COOKIE_SECURE", c.CookieSecure)
	c.TrustProxy = getBoolEnv("TRUST_PROXY", c.TrustProxy)
	c.ArchiveSweepSpec = getEnv("ARCHIVE_SWEEP_SPEC", c.ArchiveSweepSpec)

	var err error
	if c.AccessTokenTTL, err = getDurationEnv("ACCESS_TOKEN_TTL", c.AccessTokenTTL); err != nil {
		return err
	}
	if c.RefreshTokenTTL, err = getDurationEnv("REFRESH_TOKEN_TTL", c.RefreshTokenTTL); err != nil {
		return err
	}
	if c.StatsCacheTTL, err = getDurationEnv("STATS_CACHE_TTL", c.StatsCacheTTL); err != nil {
		return err
	}
	if c.AuthRateWindow, err = getDurationEnv("AUTH_RATE_WINDOW", c.AuthRateWindow); err != nil {
		return err
	}
	if c.AuthRateLimit, err = getIntEnv("AUTH_RATE_LIMIT", c.AuthRateLimit); err != nil {
		return err
	}
	return nil
}

func (c *Config) finalize() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.JWTRefreshSecret == "" {
		c.JWTRefreshSecret = c.JWTSecret
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
