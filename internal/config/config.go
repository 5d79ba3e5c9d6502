// Package config loads tool settings from the environment. Directories and
// date ranges come from flags; identity, credentials, and logging policy
// come from here. There is no process-wide mutable state: the loaded Config
// is passed explicitly to every component that needs it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	// Site identity for ingested datasets.
	SiteID string `validate:"required,alphanum"`

	// Beehive telemetry API.
	BeehiveURL      string `validate:"omitempty,url"`
	BeehiveUsername string
	BeehivePassword string
	BeehiveTimeout  time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case in production.
	_ = godotenv.Load()

	timeoutStr := envOrDefault("BEEHIVE_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BEEHIVE_TIMEOUT %q: %w", timeoutStr, err)
	}

	cfg := &Config{
		SiteID:          envOrDefault("SITE_ID", "NEIU"),
		BeehiveURL:      os.Getenv("BEEHIVE_URL"),
		BeehiveUsername: os.Getenv("BEEHIVE_USERNAME"),
		BeehivePassword: os.Getenv("BEEHIVE_PASSWORD"),
		BeehiveTimeout:  timeout,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
