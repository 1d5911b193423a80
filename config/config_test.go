package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/sso-handoff/config"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadAuth_Defaults(t *testing.T) {
	t.Setenv("API_SECRET", "key")
	t.Setenv("SESSION_SECRET", secret)

	cfg, err := config.LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.TokenTTL != 5*time.Minute {
		t.Errorf("TokenTTL = %v, want 5m", cfg.TokenTTL)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("SessionTTL = %v, want 8h", cfg.SessionTTL)
	}
	if len(cfg.AllowedRedirectOrigins) != 1 || cfg.AllowedRedirectOrigins[0] != "http://localhost:8080" {
		t.Errorf("AllowedRedirectOrigins = %v", cfg.AllowedRedirectOrigins)
	}
	if cfg.SweepSchedule != "@every 1m" {
		t.Errorf("SweepSchedule = %q", cfg.SweepSchedule)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v, want info", cfg.SlogLevel())
	}
}

func TestLoadAuth_OriginList(t *testing.T) {
	t.Setenv("API_SECRET", "key")
	t.Setenv("SESSION_SECRET", secret)
	t.Setenv("ALLOWED_REDIRECT_ORIGINS", "http://localhost:8080,https://app.example.com")

	cfg, err := config.LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if len(cfg.AllowedRedirectOrigins) != 2 || cfg.AllowedRedirectOrigins[1] != "https://app.example.com" {
		t.Errorf("AllowedRedirectOrigins = %v", cfg.AllowedRedirectOrigins)
	}
}

func TestLoadAuth_MissingAPISecret(t *testing.T) {
	t.Setenv("API_SECRET", "")
	t.Setenv("SESSION_SECRET", secret)

	if _, err := config.LoadAuth(); err == nil {
		t.Fatal("expected error without API_SECRET")
	}
}

func TestLoadAuth_ShortSessionSecret(t *testing.T) {
	t.Setenv("API_SECRET", "key")
	t.Setenv("SESSION_SECRET", "short")

	_, err := config.LoadAuth()
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("err = %v, want invalid config", err)
	}
}

func TestLoadClient_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("SESSION_SECRET", secret)
	t.Setenv("AUTH_SYSTEM_URL", "http://localhost:9000/")
	t.Setenv("AUTH_SYSTEM_API_KEY", "key")
	t.Setenv("BASE_URL", "http://localhost:8080/")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.LoadClient()
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.AuthSystemURL != "http://localhost:9000" {
		t.Errorf("AuthSystemURL = %q", cfg.AuthSystemURL)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.RedeemTimeout != 5*time.Second {
		t.Errorf("RedeemTimeout = %v", cfg.RedeemTimeout)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
}
