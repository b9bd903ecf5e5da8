// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	AdminToken  string

	SessionTimeout time.Duration
	SessionWarning time.Duration
	SweepInterval  time.Duration
	MaxHistory     int

	Reasoner ReasonerConfig
}

// ReasonerConfig points at the OpenAI-compatible completion endpoint
// used for guardian replies and win judging. An empty URL switches the
// game to the built-in deterministic responder.
type ReasonerConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/gauntlet.db"),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		SessionTimeout: getEnvDuration("SESSION_TIMEOUT", 3*time.Minute),
		SessionWarning: getEnvDuration("SESSION_WARNING", 2*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),
		MaxHistory:     getEnvInt("MAX_HISTORY", 20),
		Reasoner: ReasonerConfig{
			URL:     getEnv("REASONER_URL", ""),
			APIKey:  getEnv("REASONER_API_KEY", ""),
			Model:   getEnv("REASONER_MODEL", ""),
			Timeout: getEnvDuration("REASONER_TIMEOUT", 6*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.SessionWarning <= 0 {
		return fmt.Errorf("SESSION_WARNING must be > 0")
	}
	if c.SessionWarning >= c.SessionTimeout {
		return fmt.Errorf("SESSION_WARNING must be shorter than SESSION_TIMEOUT")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.MaxHistory <= 0 {
		return fmt.Errorf("MAX_HISTORY must be > 0")
	}
	if c.Reasoner.URL != "" && c.Reasoner.APIKey == "" {
		return fmt.Errorf("REASONER_API_KEY is required when REASONER_URL is set")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
