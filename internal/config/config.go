package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type OAuthProvider struct {
	Key         string `env:"KEY"`
	Secret      string `env:"SECRET"`
	CallbackURL string `env:"CALLBACK_URL"`
}

// Configured reports whether the provider has credentials.
func (p OAuthProvider) Configured() bool {
	return p.Key != "" && p.Secret != ""
}

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"op_bracket.db"`

	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	SubmitMaxAttempts int           `env:"SUBMIT_MAX_ATTEMPTS" envDefault:"5"`
	SubmitTimeout     time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"10s"`

	// Tracing is off while this is empty.
	OTELEndpoint string `env:"OTEL_ENDPOINT"`

	Discord OAuthProvider `envPrefix:"DISCORD_"`
	Google  OAuthProvider `envPrefix:"GOOGLE_"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBDriver != db.DriverSQLite && c.DBDriver != db.DriverPostgres {
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", db.DriverSQLite, db.DriverPostgres, c.DBDriver)
	}
	if c.SubmitMaxAttempts < 1 {
		return fmt.Errorf("SUBMIT_MAX_ATTEMPTS must be at least 1, got %d", c.SubmitMaxAttempts)
	}
	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("SUBMIT_TIMEOUT must be positive, got %s", c.SubmitTimeout)
	}
	return nil
}
