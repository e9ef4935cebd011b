package history

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the durable regression ledger's database configuration.
// Mirrors the teacher's pkg/database Config, renamed to HISTORY_DB_* so it
// cannot collide with a project's own application database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads Config from HISTORY_DB_* environment variables;
// unset variables take their defaults (HISTORY_DB_HOST defaults to
// localhost). The regression commands call this unconditionally: nothing
// checks whether HISTORY_DB_HOST is set, and there is no fallback to the
// JSONL baseline tables.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("HISTORY_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HISTORY_DB_PORT: %w", err)
	}
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("HISTORY_DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("HISTORY_DB_MAX_IDLE_CONNS", "5"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("HISTORY_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HISTORY_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("HISTORY_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid HISTORY_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("HISTORY_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("HISTORY_DB_USER", "shipwright"),
		Password:        os.Getenv("HISTORY_DB_PASSWORD"),
		Database:        getEnvOrDefault("HISTORY_DB_NAME", "shipwright_history"),
		SSLMode:         getEnvOrDefault("HISTORY_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable before opening a connection.
func (c Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("HISTORY_DB_PASSWORD is required")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("HISTORY_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("HISTORY_DB_MAX_IDLE_CONNS cannot be negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("HISTORY_DB_MAX_IDLE_CONNS (%d) cannot exceed HISTORY_DB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
