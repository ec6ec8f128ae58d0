package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config carries every runtime knob. Values come from the environment
// first; -a and -b flags override the listen address and base URL.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"localhost:8080"`
	BaseURL       string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	RedisURL      string `env:"REDIS_URL"`

	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	APIKey             string `env:"API_KEY"`
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	RateLimitPerHour   int `env:"RATE_LIMIT_PER_HOUR" envDefault:"1000"`
}

// ParseFlags builds the config from the environment and command line.
func ParseFlags() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	flag.StringVar(&cfg.ServerAddress, "a", cfg.ServerAddress, "address and port to run server")
	flag.StringVar(&cfg.BaseURL, "b", cfg.BaseURL, "base address of the resulting shortened URL")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database connection string")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Production returns true when the service runs with production
// hardening: secrets required, no auth bypasses.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// Validate rejects configurations that would silently disable auth in
// production.
func (c *Config) Validate() error {
	if c.RateLimitPerMinute <= 0 || c.RateLimitPerHour <= 0 {
		return errors.New("rate limits must be positive")
	}

	if !c.Production() {
		return nil
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.APIKey == "" {
		return errors.New("API_KEY is required in production")
	}
	return nil
}
