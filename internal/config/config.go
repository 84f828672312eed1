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

const (
	StoreLocal     = "local"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port   string
	AppEnv string

	EntryStore     string
	LocalStorePath string
	SQLitePath     string

	Postgres Postgres
	Redis    Redis
	CacheTTL time.Duration

	FirebaseEnabled            bool
	FirebaseServiceAccountPath string
	FirebaseProjectID          string

	DefaultTimezone string
	AppPasswordHash string

	RemindersEnabled bool
	ReminderSchedule string
	ReminderTimezone string
}

type Postgres struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns URL when set, otherwise a URL built from the individual fields.
func (p Postgres) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

type Redis struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "9091"),
		AppEnv:         getEnvOrDefault("APP_ENV", "production"),
		EntryStore:     strings.ToLower(getEnvOrDefault("ENTRY_STORE", StoreLocal)),
		LocalStorePath: getEnvOrDefault("LOCAL_STORE_PATH", "./data/entries.json"),
		SQLitePath:     getEnvOrDefault("SQLITE_PATH", "./data/entries.db"),
		Postgres: Postgres{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
			User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
			Name:     getEnvOrDefault("POSTGRES_DB", "healthjournal"),
			SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		},
		Redis: Redis{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		FirebaseServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		FirebaseProjectID:          os.Getenv("FIREBASE_PROJECT_ID"),
		DefaultTimezone:            getEnvOrDefault("DEFAULT_TIMEZONE", "Local"),
		AppPasswordHash:            os.Getenv("APP_PASSWORD_HASH"),
		ReminderSchedule:           getEnvOrDefault("REMINDER_SCHEDULE", "0 20 * * *"),
		ReminderTimezone:           getEnvOrDefault("REMINDER_TIMEZONE", "UTC"),
	}

	var err error
	if cfg.Redis.DB, err = strconv.Atoi(getEnvOrDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}
	if cfg.Redis.Enabled, err = getBool("REDIS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.FirebaseEnabled, err = getBool("FIREBASE_ENABLED", cfg.EntryStore == StoreFirestore); err != nil {
		return nil, err
	}
	if cfg.RemindersEnabled, err = getBool("REMINDERS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnvOrDefault("CACHE_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL value: %w", err)
	}

	switch cfg.EntryStore {
	case StoreLocal, StoreSQLite, StorePostgres:
	case StoreFirestore:
		if !cfg.FirebaseEnabled {
			return nil, fmt.Errorf("ENTRY_STORE=firestore requires FIREBASE_ENABLED")
		}
	default:
		return nil, fmt.Errorf("unknown ENTRY_STORE %q", cfg.EntryStore)
	}
	if cfg.RemindersEnabled && (!cfg.Redis.Enabled || !cfg.FirebaseEnabled) {
		return nil, fmt.Errorf("REMINDERS_ENABLED requires REDIS_ENABLED and FIREBASE_ENABLED")
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// getEnvOrDefault returns the environment variable value or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return b, nil
}
