package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.RateLimitRPS != 5 || cfg.Auth.RateLimitBurst != 10 {
		t.Errorf("default rate limit = %v/%v, want 5/10", cfg.Auth.RateLimitRPS, cfg.Auth.RateLimitBurst)
	}
	if cfg.Auth.RefreshExpireHours != 720 {
		t.Errorf("default refresh expiry = %d, want 720", cfg.Auth.RefreshExpireHours)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRE_HOUR", "48")
	t.Setenv("AUTH_RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "3")
	t.Setenv("AUTH_REFRESH_EXPIRE_HOURS", "168")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.JWT.ExpireHour != 48 {
		t.Errorf("jwt expire hour = %d, want 48", cfg.JWT.ExpireHour)
	}
	if cfg.Auth.RateLimitRPS != 2.5 {
		t.Errorf("rate limit rps = %v, want 2.5", cfg.Auth.RateLimitRPS)
	}
	if cfg.Auth.RateLimitBurst != 3 {
		t.Errorf("rate limit burst = %d, want 3", cfg.Auth.RateLimitBurst)
	}
	if cfg.Auth.RefreshExpireHours != 168 {
		t.Errorf("refresh expiry = %d, want 168", cfg.Auth.RefreshExpireHours)
	}
}

func TestEnvOverridesIgnoreInvalidNumbers(t *testing.T) {
	t.Setenv("AUTH_RATE_LIMIT_RPS", "not-a-number")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "-1")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.RateLimitRPS != 5 {
		t.Errorf("rate limit rps = %v, want default 5", cfg.Auth.RateLimitRPS)
	}
	if cfg.Auth.RateLimitBurst != 10 {
		t.Errorf("rate limit burst = %d, want default 10", cfg.Auth.RateLimitBurst)
	}
}
