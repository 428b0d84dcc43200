package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_RequiresTokenSecret(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded without TOKEN_SECRET")
	}
	if !strings.Contains(err.Error(), "TOKEN_SECRET") {
		t.Errorf("error %q does not name the missing variable", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("TOKEN_LIFETIME", "")
	t.Setenv("OTP_MODE", "")
	t.Setenv("OTP_CODE", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.TokenLifetime != 24*time.Hour {
		t.Errorf("TokenLifetime = %s, want 24h", cfg.Auth.TokenLifetime)
	}
	if cfg.Auth.OTPMode != "fixed" {
		t.Errorf("OTPMode = %q, want fixed", cfg.Auth.OTPMode)
	}
	if cfg.Auth.OTPCode != "123456" {
		t.Errorf("OTPCode = %q, want 123456", cfg.Auth.OTPCode)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")

	t.Setenv("TOKEN_LIFETIME", "one-day")
	if _, err := Load(); err == nil {
		t.Error("bad TOKEN_LIFETIME accepted")
	}
	t.Setenv("TOKEN_LIFETIME", "")

	t.Setenv("OTP_MODE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Error("bad OTP_MODE accepted")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "test-secret")
	t.Setenv("TOKEN_LIFETIME", "720h")
	t.Setenv("OTP_MODE", "store")
	t.Setenv("OTP_LIFETIME", "2m")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Auth.TokenLifetime != 720*time.Hour {
		t.Errorf("TokenLifetime = %s, want 720h", cfg.Auth.TokenLifetime)
	}
	if cfg.Auth.OTPMode != "store" {
		t.Errorf("OTPMode = %q, want store", cfg.Auth.OTPMode)
	}
	if cfg.Auth.OTPLifetime != 2*time.Minute {
		t.Errorf("OTPLifetime = %s, want 2m", cfg.Auth.OTPLifetime)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction = false, want true")
	}
}
