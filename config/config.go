package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Common holds the settings both binaries share.
type Common struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	SessionSecret string        `env:"SESSION_SECRET,required" validate:"required,min=32"`
	SessionTTL    time.Duration `env:"SESSION_TTL"             envDefault:"8h" validate:"min=1m"`
}

func (c Common) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SecureCookies reports whether session cookies should carry the Secure flag.
func (c Common) SecureCookies() bool {
	return c.Env != "local"
}

type AuthConfig struct {
	Common

	Port        string `env:"PORT"         envDefault:"9000" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	APISecret              string        `env:"API_SECRET,required"      validate:"required"`
	TokenTTL               time.Duration `env:"TOKEN_TTL"                envDefault:"5m" validate:"min=1s"`
	AllowedRedirectOrigins []string      `env:"ALLOWED_REDIRECT_ORIGINS" envDefault:"http://localhost:8080" envSeparator:","`

	// DatabaseURL is optional; without it audit events are only logged.
	DatabaseURL   string `env:"DATABASE_URL"`
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 1m" validate:"required"`

	LoginRatePerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"30" validate:"min=1,max=10000"`
	LoginRateBurst     int `env:"LOGIN_RATE_BURST"      envDefault:"10" validate:"min=1,max=1000"`
}

type ClientConfig struct {
	Common

	Port        string `env:"PORT"         envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9091"`

	BaseURL       string        `env:"BASE_URL"                     envDefault:"http://localhost:8080" validate:"required,url"`
	AuthSystemURL string        `env:"AUTH_SYSTEM_URL,required"     validate:"required,url"`
	AuthAPIKey    string        `env:"AUTH_SYSTEM_API_KEY,required" validate:"required"`
	RedeemTimeout time.Duration `env:"REDEEM_TIMEOUT"               envDefault:"5s" validate:"min=100ms"`
}

func LoadAuth() (*AuthConfig, error) {
	return load(&AuthConfig{})
}

func LoadClient() (*ClientConfig, error) {
	cfg, err := load(&ClientConfig{})
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.AuthSystemURL = strings.TrimRight(cfg.AuthSystemURL, "/")
	return cfg, nil
}

func load[T any](cfg *T) (*T, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
