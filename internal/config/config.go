// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything main needs to wire the server.
type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// JWTSecret signs identity tokens. It is read once at startup.
	JWTSecret  string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"taskmanager"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// DatabasePath selects the SQLite store; empty keeps everything in memory.
	DatabasePath string `env:"DATABASE_PATH"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	LoginRate      float64 `env:"LOGIN_RATE" envDefault:"0.5"`
	LoginBurst     float64 `env:"LOGIN_BURST" envDefault:"5"`

	TracesExporter string `env:"TRACES_EXPORTER" envDefault:"none"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	switch c.TracesExporter {
	case "none", "stdout":
	case "otlp":
		if c.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTLP_ENDPOINT is required when TRACES_EXPORTER=otlp"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRACES_EXPORTER must be none, stdout or otlp, got %q", c.TracesExporter))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
