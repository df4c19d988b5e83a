// Package config provides configuration loading and validation for the
// marketplace. The Config struct is constructed once at process start and
// injected into each component constructor; no component reads the process
// environment on its own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every externally supplied setting the marketplace needs.
type Config struct {
	// DatabaseURL is the PostgreSQL connection URL for the marketplace stores.
	DatabaseURL string
	// RedisAddr is the address of the model-response cache. Empty means an
	// in-memory cache (no cross-process idempotence).
	RedisAddr string
	// GeminiAPIKey authenticates calls to the generative backend.
	GeminiAPIKey string

	// ArtifactsBucket is the S3 bucket for image artifacts.
	ArtifactsBucket string
	// AWSRegion is the region the artifacts bucket lives in.
	AWSRegion string

	// Port is the HTTP API listen port.
	Port int
	// PollInterval is how often the orchestrator sweeps for open contracts.
	PollInterval time.Duration
	// SweepInterval is how often the relay listener re-delivers events that
	// were missed while no listener was connected.
	SweepInterval time.Duration
	// CallTimeout bounds each model-backend and storage call.
	CallTimeout time.Duration
}

// Load reads configuration from the process environment, applying defaults
// for the optional settings.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		ArtifactsBucket: os.Getenv("ARTIFACTS_BUCKET"),
		AWSRegion:       os.Getenv("AWS_REGION"),
		Port:            8080,
		PollInterval:    30 * time.Second,
		SweepInterval:   2 * time.Minute,
		CallTimeout:     60 * time.Second,
	}

	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", raw, err)
		}
		cfg.Port = port
	}
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: %w", raw, err)
		}
		cfg.PollInterval = d
	}
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL %q: %w", raw, err)
		}
		cfg.SweepInterval = d
	}
	if raw := os.Getenv("CALL_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CALL_TIMEOUT %q: %w", raw, err)
		}
		cfg.CallTimeout = d
	}

	return cfg, nil
}

// Validate checks that the settings required to run the full marketplace are
// present and sane.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config error: poll interval must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config error: sweep interval must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("config error: call timeout must be positive")
	}
	return nil
}
