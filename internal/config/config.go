// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// AgentBaseURL is the agent backend the console talks to.
	AgentBaseURL string

	// Port and the fields below configure the bundled reference backend
	// started by `showrunner serve`.
	Port        string
	DBPath      string
	FrontendURL string
	RateLimit   RateLimitConfig
}

// RateLimitConfig bounds how often one client may start a stream.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	window := getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if window <= 0 {
		window = 60
	}

	cfg := &Config{
		AgentBaseURL: getEnv("AGENT_BASE_URL", "http://localhost:8080"),
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "./data/showrunner.db"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			WindowDuration:    time.Duration(window) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.AgentBaseURL == "" {
		return fmt.Errorf("AGENT_BASE_URL cannot be empty")
	}
	if u, err := url.Parse(c.AgentBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AGENT_BASE_URL must be an absolute URL, got %q", c.AgentBaseURL)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
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
