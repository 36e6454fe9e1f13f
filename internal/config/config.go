package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sync backend identifiers.
const (
	BackendHTTP = "http"
	BackendGCS  = "gcs"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	// Runtime
	Env         string
	Port        string
	LocalAPIKey string

	// Local store
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Optional Redis-backed key/value store for sync bookkeeping
	RedisURL string

	// Cloud sync
	SyncBackend          string
	SyncAPIURL           string
	SyncGCSBucket        string
	SyncAuthToken        string
	RequestTimeout       time.Duration
	ReminderIntervalDays int
	AutoSyncInterval     time.Duration
}

// Load loads configuration from the .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8089"),
		LocalAPIKey: os.Getenv("LOCAL_API_KEY"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:     getEnv("DB_PATH", "pocketledger.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pocketledger"),
		DBPassword: getEnv("DB_PASSWORD", "pocketledger"),
		DBName:     getEnv("DB_NAME", "pocketledger"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: os.Getenv("REDIS_URL"),

		SyncBackend:   strings.ToLower(getEnv("SYNC_BACKEND", BackendHTTP)),
		SyncAPIURL:    getEnv("SYNC_API_URL", "http://localhost:8080/api/v1"),
		SyncGCSBucket: os.Getenv("SYNC_GCS_BUCKET"),
		SyncAuthToken: os.Getenv("SYNC_AUTH_TOKEN"),
	}

	timeout, err := parseTimeout(os.Getenv("REQUEST_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	interval, err := parseReminderInterval(os.Getenv("REMINDER_INTERVAL_DAYS"))
	if err != nil {
		return nil, err
	}
	cfg.ReminderIntervalDays = interval

	autoSync, err := parseAutoSyncInterval(os.Getenv("AUTO_SYNC_INTERVAL"))
	if err != nil {
		return nil, err
	}
	cfg.AutoSyncInterval = autoSync

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be sqlite or postgres", c.DBDriver)
	}

	switch c.SyncBackend {
	case BackendHTTP:
		if c.SyncAPIURL == "" {
			return fmt.Errorf("SYNC_API_URL is required for the http sync backend")
		}
	case BackendGCS:
		if c.SyncGCSBucket == "" {
			return fmt.Errorf("SYNC_GCS_BUCKET is required for the gcs sync backend")
		}
	default:
		return fmt.Errorf("invalid SYNC_BACKEND %q: must be http or gcs", c.SyncBackend)
	}
	return nil
}

// Production reports whether the app runs with production settings.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 20 * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", s, err)
	}
	if d < time.Second || d > time.Minute {
		return 0, fmt.Errorf("REQUEST_TIMEOUT must be between 1s and 1m, got %v", d)
	}
	return d, nil
}

func parseReminderInterval(s string) (int, error) {
	if s == "" {
		return 7, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid REMINDER_INTERVAL_DAYS %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("REMINDER_INTERVAL_DAYS must be at least 1, got %d", n)
	}
	return n, nil
}

func parseAutoSyncInterval(s string) (time.Duration, error) {
	if s == "" {
		return 15 * time.Minute, nil
	}
	if s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid AUTO_SYNC_INTERVAL %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("AUTO_SYNC_INTERVAL must not be negative, got %v", d)
	}
	return d, nil
}
