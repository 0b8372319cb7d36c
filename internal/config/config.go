package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Backend    BackendConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Server     ServerConfig
	Slack      SlackConfig
	Cache      CacheConfig
	Batch      BatchConfig
	SelfHosted bool
}

// BackendConfig points at the remote project-management API.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds the secret shared with the backend for verifying its tokens.
type JWTConfig struct {
	Secret       string //nolint:gosec // G117: JWT signing secret config
	CookieName   string
	CookieSecure bool
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
}

// SlackConfig holds the optional team notification webhook.
type SlackConfig struct {
	WebhookURL string
	Channel    string
}

// CacheConfig holds Redis cache lifetimes. A zero TTL disables the cache.
type CacheConfig struct {
	TaskTTL   time.Duration
	APIKeyTTL time.Duration
}

// BatchConfig bounds bulk operations.
type BatchConfig struct {
	Concurrency int
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	backendTimeout, err := getEnvDuration("PLANBOARD_BACKEND_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbPort, err := getEnvInt("PLANBOARD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("PLANBOARD_DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PLANBOARD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cookieSecure, err := getEnvBool("PLANBOARD_COOKIE_SECURE", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("PLANBOARD_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PLANBOARD_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("PLANBOARD_RATE_LIMIT", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("PLANBOARD_RATE_BURST", 200)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	taskTTL, err := getEnvDuration("PLANBOARD_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	apiKeyTTL, err := getEnvDuration("PLANBOARD_APIKEY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	batchConcurrency, err := getEnvInt("PLANBOARD_BATCH_CONCURRENCY", 8)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("PLANBOARD_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("PLANBOARD_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Backend: BackendConfig{
			URL:     getEnv("PLANBOARD_BACKEND_URL", "http://localhost:3000/api"),
			Timeout: backendTimeout,
		},
		Database: DatabaseConfig{
			Host:     getEnv("PLANBOARD_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("PLANBOARD_DB_USER", "planboard"),
			Password: getEnv("PLANBOARD_DB_PASSWORD", ""),
			DBName:   getEnv("PLANBOARD_DB_NAME", "planboard_dev"),
			SSLMode:  getEnv("PLANBOARD_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PLANBOARD_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("PLANBOARD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:       getEnv("PLANBOARD_JWT_SECRET", ""),
			CookieName:   getEnv("PLANBOARD_COOKIE_NAME", "planboard_session"),
			CookieSecure: cookieSecure,
		},
		Server: ServerConfig{
			Addr:         getEnv("PLANBOARD_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
			RateLimit:    rateLimit,
			RateBurst:    rateBurst,
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("PLANBOARD_SLACK_WEBHOOK_URL", ""),
			Channel:    getEnv("PLANBOARD_SLACK_CHANNEL", ""),
		},
		Cache: CacheConfig{
			TaskTTL:   taskTTL,
			APIKeyTTL: apiKeyTTL,
		},
		Batch: BatchConfig{
			Concurrency: batchConcurrency,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("PLANBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("PLANBOARD_JWT_SECRET must be at least 32 characters")
	}

	u, err := url.Parse(c.Backend.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("PLANBOARD_BACKEND_URL must be an absolute http(s) URL, got %q", c.Backend.URL)
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("PLANBOARD_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}
	if !c.JWT.CookieSecure && !c.SelfHosted {
		log.Warn().Msg("PLANBOARD_COOKIE_SECURE=false sends session cookies over plain HTTP")
	}

	// Bounds checks.
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("PLANBOARD_BACKEND_TIMEOUT must be positive, got %s", c.Backend.Timeout)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("PLANBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("PLANBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PLANBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PLANBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("PLANBOARD_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("PLANBOARD_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Cache.TaskTTL < 0 {
		return fmt.Errorf("PLANBOARD_CACHE_TTL must not be negative, got %s", c.Cache.TaskTTL)
	}
	if c.Cache.APIKeyTTL < 0 {
		return fmt.Errorf("PLANBOARD_APIKEY_CACHE_TTL must not be negative, got %s", c.Cache.APIKeyTTL)
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		return fmt.Errorf("PLANBOARD_BATCH_CONCURRENCY must be 1-64, got %d", c.Batch.Concurrency)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
