package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (tokens are issued by the marketplace auth service)
	JWTSecret string

	// Admin
	AdminUserIDs string
	AdminToken   string

	// Redis (optional, enables the distributed resolution lock)
	RedisURL string
	LockTTL  time.Duration
	LockWait time.Duration

	// Marketplace platform API
	PlatformAPIURL     string
	PlatformAPIToken   string
	PlatformAPITimeout time.Duration

	// Moderation
	ActionTimeout         time.Duration
	RequireDismissalNotes bool

	// Notifications
	NotifyWorkers     int
	NotifyQueueSize   int
	NotifyParallelism int

	// Logging / error tracking
	LogLevel         string
	LogRetentionDays int
	SentryDSN        string
	AppEnv           string

	// Server
	Port        string
	CORSOrigins string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "marketplace_moderation"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		RedisURL: getEnv("REDIS_URL", ""),
		LockTTL:  parseDuration(getEnv("LOCK_TTL", "30s"), 30*time.Second),
		LockWait: parseDuration(getEnv("LOCK_WAIT", "2s"), 2*time.Second),

		PlatformAPIURL:     getEnv("PLATFORM_API_URL", ""),
		PlatformAPIToken:   getEnv("PLATFORM_API_TOKEN", ""),
		PlatformAPITimeout: parseDuration(getEnv("PLATFORM_API_TIMEOUT", "8s"), 8*time.Second),

		ActionTimeout:         parseDuration(getEnv("ACTION_TIMEOUT", "10s"), 10*time.Second),
		RequireDismissalNotes: parseBool(getEnv("REQUIRE_DISMISSAL_NOTES", "true"), true),

		NotifyWorkers:     parseInt(getEnv("NOTIFY_WORKERS", "4"), 4),
		NotifyQueueSize:   parseInt(getEnv("NOTIFY_QUEUE_SIZE", "256"), 256),
		NotifyParallelism: parseInt(getEnv("NOTIFY_PARALLELISM", "4"), 4),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AppEnv:           getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

// Validate reports the required settings that are missing.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	}
	if c.DBPassword == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if c.PlatformAPIURL == "" {
		errs = append(errs, errors.New("PLATFORM_API_URL environment variable is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// AdminIDs returns the configured admin subject ids.
func (c *Config) AdminIDs() []string {
	if c.AdminUserIDs == "" {
		return nil
	}
	parts := strings.Split(c.AdminUserIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return b
}
