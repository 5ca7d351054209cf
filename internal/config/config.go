// Package config loads settings for the board and the activities API from an
// optional YAML file and environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Notification hide-timer modes.
const (
	NotifyGeneration = "generation"
	NotifyLegacy     = "legacy"
)

// Activity store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN builds a libpq-compatible connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Config holds settings for both binaries.
type Config struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Board front-end.
	BoardPort       string        `yaml:"board_port"`
	APIBaseURL      string        `yaml:"api_base_url"`
	APITimeout      time.Duration `yaml:"api_timeout"`
	NotificationTTL time.Duration `yaml:"notification_ttl"`
	NotifyMode      string        `yaml:"notify_mode"`
	CSRFKey         string        `yaml:"csrf_key"`
	SessionIdle     time.Duration `yaml:"session_idle"`

	// Activities API.
	APIPort        string   `yaml:"api_port"`
	Store          string   `yaml:"store"`
	SQLitePath     string   `yaml:"sqlite_path"`
	DatabaseURL    string   `yaml:"database_url"`
	Database       DBConfig `yaml:"database"`
	RateLimitRPS   int      `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	Seed           bool     `yaml:"seed"`
}

// Default returns the local-development configuration.
func Default() *Config {
	return &Config{
		Env:             "development",
		LogLevel:        "INFO",
		LogFormat:       "text",
		BoardPort:       "8080",
		APIBaseURL:      "http://localhost:8000",
		APITimeout:      30 * time.Second,
		NotificationTTL: 5 * time.Second,
		NotifyMode:      NotifyGeneration,
		SessionIdle:     30 * time.Minute,
		APIPort:         "8000",
		Store:           StoreMemory,
		SQLitePath:      "activities.db",
		Database: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "activities",
			SSLMode:  "disable",
		},
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		Seed:           true,
	}
}

// Load applies the YAML file named by BOARD_CONFIG (if any) over the defaults,
// then environment variable overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BOARD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg.Env = getEnv("BOARD_ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.BoardPort = getEnv("PORT", cfg.BoardPort)
	cfg.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", cfg.APIBaseURL), "/")
	cfg.NotifyMode = getEnv("NOTIFY_MODE", cfg.NotifyMode)
	cfg.CSRFKey = getEnv("BOARD_CSRF_KEY", cfg.CSRFKey)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.Store = getEnv("ACTIVITY_STORE", cfg.Store)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	var err error
	if cfg.APITimeout, err = getDuration("API_TIMEOUT", cfg.APITimeout); err != nil {
		return nil, err
	}
	if cfg.NotificationTTL, err = getDuration("NOTIFICATION_TTL", cfg.NotificationTTL); err != nil {
		return nil, err
	}
	if cfg.SessionIdle, err = getDuration("SESSION_IDLE", cfg.SessionIdle); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getInt("RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if v := os.Getenv("ACTIVITY_SEED"); v != "" {
		cfg.Seed = v == "true" || v == "1"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the binaries cannot start with.
func (c *Config) Validate() error {
	switch c.NotifyMode {
	case NotifyGeneration, NotifyLegacy:
	default:
		return fmt.Errorf("notify_mode must be %q or %q, got %q", NotifyGeneration, NotifyLegacy, c.NotifyMode)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.NotificationTTL <= 0 {
		return fmt.Errorf("notification_ttl must be positive")
	}
	if c.CSRFKey != "" {
		if _, err := c.CSRFKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether the binaries run in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CSRFKeyBytes decodes the hex CSRF key. An empty key returns nil.
func (c *Config) CSRFKeyBytes() ([]byte, error) {
	if c.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("csrf key must be 64 hex characters (32 bytes)")
	}
	return key, nil
}

// PostgresDSN returns DATABASE_URL when set, else the DSN built from DB_* settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.Database.DSN()
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
