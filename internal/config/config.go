package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds service configuration.
type Config struct {
	DatabaseURL      string        `env:"DATABASE_URL"`
	ServerAddr       string        `env:"SERVER_ADDR" envDefault:"0.0.0.0:8080"`
	PacksDir         string        `env:"PACKS_DIR" envDefault:"packs"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR" envDefault:"internal/migrations"`
	LockTimeout      time.Duration `env:"SESSION_LOCK_TIMEOUT" envDefault:"5s"`
	IdleTTL          time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	ReapInterval     time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReportSigningKey string        `env:"REPORT_SIGNING_KEY"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	Policy           game.Policy   `envPrefix:"GAME_"`
}

// Load reads configuration from environment. Without DATABASE_URL the DSN
// is assembled from the POSTGRES_* variables when POSTGRES_HOST is set;
// otherwise the service runs without persistence.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabaseURL == "" && os.Getenv("POSTGRES_HOST") != "" {
		user := getenv("POSTGRES_USER", "quiz_hub")
		pass := getenv("POSTGRES_PASSWORD", "quiz_hub_pass")
		db := getenv("POSTGRES_DB", "quiz_hub")
		host := os.Getenv("POSTGRES_HOST")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unusable values.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("%w: SERVER_ADDR is empty", ErrInvalidConfig)
	}
	if c.LockTimeout <= 0 || c.IdleTTL <= 0 || c.ReapInterval <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.ReportSigningKey != "" {
		if _, err := hex.DecodeString(c.ReportSigningKey); err != nil {
			return fmt.Errorf("%w: REPORT_SIGNING_KEY must be hex", ErrInvalidConfig)
		}
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SigningKey returns the decoded report signing key, nil when unset.
func (c *Config) SigningKey() []byte {
	if c.ReportSigningKey == "" {
		return nil
	}
	key, err := hex.DecodeString(c.ReportSigningKey)
	if err != nil {
		return nil
	}
	return key
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}
