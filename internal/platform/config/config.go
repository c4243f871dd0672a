// Package config loads application configuration from environment variables.
// All variables use the PATHGENIUS_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Generation GenerationConfig
	Assessment AssessmentConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings for the document
// store. An empty URL runs the service on the in-memory store.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables the
// cross-process in-flight markers; the process-local guards still apply.
type CacheConfig struct {
	URL string
}

// GenerationConfig holds settings for the content-generation backend.
type GenerationConfig struct {
	URL            string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBackoffMS int
}

// AssessmentConfig holds the diagnostic assessment settings.
type AssessmentConfig struct {
	BankDir string // optional directory of preset question YAML files
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with PATHGENIUS_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PATHGENIUS_SERVER_PORT", 8080),
			Host: envStr("PATHGENIUS_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PATHGENIUS_DATABASE_URL", ""),
			MaxConns: envInt("PATHGENIUS_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("PATHGENIUS_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("PATHGENIUS_CACHE_URL", ""),
		},
		Generation: GenerationConfig{
			URL:            envStr("PATHGENIUS_GENERATION_URL", "http://localhost:8000"),
			Timeout:        time.Duration(envInt("PATHGENIUS_GENERATION_TIMEOUT_SECONDS", 30)) * time.Second,
			RetryAttempts:  envInt("PATHGENIUS_GENERATION_RETRY_ATTEMPTS", 3),
			RetryBackoffMS: envInt("PATHGENIUS_GENERATION_RETRY_BACKOFF_MS", 2000),
		},
		Assessment: AssessmentConfig{
			BankDir: envStr("PATHGENIUS_ASSESSMENT_BANK_DIR", ""),
		},
		Log: LogConfig{
			Level:  envStr("PATHGENIUS_LOG_LEVEL", "info"),
			Format: envStr("PATHGENIUS_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Generation.URL == "" {
		return fmt.Errorf("PATHGENIUS_GENERATION_URL is required")
	}
	if c.Generation.RetryAttempts < 1 {
		return fmt.Errorf("PATHGENIUS_GENERATION_RETRY_ATTEMPTS must be at least 1, got %d", c.Generation.RetryAttempts)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PATHGENIUS_SERVER_PORT must be a valid port, got %d", c.Server.Port)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
