package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-jwt-secret-key")
	t.Setenv("TOKEN_ENCRYPTION_KEY", "01234567890123456789012345678901")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWT.Secret != "test-jwt-secret-key" {
		t.Errorf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "test-jwt-secret-key")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Plaid.Environment != "sandbox" {
		t.Errorf("Plaid.Environment = %q, want sandbox", cfg.Plaid.Environment)
	}
	if cfg.Cache.AccountsTTL != 24*time.Hour {
		t.Errorf("Cache.AccountsTTL = %v, want 24h", cfg.Cache.AccountsTTL)
	}
	if cfg.Tokens.CleanupThreshold != 90 {
		t.Errorf("Tokens.CleanupThreshold = %d, want 90", cfg.Tokens.CleanupThreshold)
	}
}

func TestLoad_MissingSecretKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SECRET_KEY", "")
	os.Unsetenv("SECRET_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing SECRET_KEY, got nil")
	}
}

func TestLoad_ShortEncryptionKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TOKEN_ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for short TOKEN_ENCRYPTION_KEY, got nil")
	}
}

func TestLoad_InvalidPlaidEnv(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_ENV", "staging")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid PLAID_ENV, got nil")
	}
}

func TestLoad_TLSRequiresCertAndKey(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS without cert paths, got nil")
	}
}

func TestLoad_CallbackURLsFromHostURL(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("HOST_URL", "https://api.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := "https://api.example.com/api/auth/oauth/callback"
	if cfg.OAuth.Google.CallbackURL != want {
		t.Errorf("Google.CallbackURL = %q, want %q", cfg.OAuth.Google.CallbackURL, want)
	}
	wantMS := "https://api.example.com/api/auth/oauth/microsoft/callback"
	if cfg.OAuth.Microsoft.CallbackURL != wantMS {
		t.Errorf("Microsoft.CallbackURL = %q, want %q", cfg.OAuth.Microsoft.CallbackURL, wantMS)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a.example.com, b.example.com ,, ")
	if len(got) != 2 || got[0] != "a.example.com" || got[1] != "b.example.com" {
		t.Errorf("splitList() = %v", got)
	}
	if splitList("") != nil {
		t.Error("splitList(\"\") should be nil")
	}
}
