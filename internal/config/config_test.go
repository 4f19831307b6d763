package config

import (
	"testing"
	"time"
)

func TestEnvFallback(t *testing.T) {
	const key = "_ADDONWARE_TEST_ENV"
	t.Setenv(key, "")
	if got := env(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv(key, " value ")
	if got := env(key, "fallback"); got != "value" {
		t.Fatalf("expected 'value', got %q", got)
	}
}

func TestTypedEnv(t *testing.T) {
	t.Setenv("_ADDONWARE_INT", "42")
	t.Setenv("_ADDONWARE_BAD_INT", "x")
	t.Setenv("_ADDONWARE_DUR", "90m")
	t.Setenv("_ADDONWARE_BOOL", "true")
	if got := envInt("_ADDONWARE_INT", 1); got != 42 {
		t.Fatalf("envInt = %d", got)
	}
	if got := envInt("_ADDONWARE_BAD_INT", 7); got != 7 {
		t.Fatalf("envInt fallback = %d", got)
	}
	if got := envDuration("_ADDONWARE_DUR", time.Second); got != 90*time.Minute {
		t.Fatalf("envDuration = %v", got)
	}
	if !envBool("_ADDONWARE_BOOL", false) {
		t.Fatalf("envBool should be true")
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("_ADDONWARE_LIST", " https://a.example , ,https://b.example")
	got := envList("_ADDONWARE_LIST")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("envList = %q", got)
	}
	t.Setenv("_ADDONWARE_LIST", "")
	if got := envList("_ADDONWARE_LIST"); got != nil {
		t.Fatalf("envList of empty value = %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TOKEN_STORE", "")
	t.Setenv("NOTIFY_DRIVER", "")
	t.Setenv("UNLOCK_TOKEN_TTL", "")
	t.Setenv("PUBLIC_BASE_URL", "https://addonware.de/")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreDriver != "sqlite" || cfg.TokenStore != "sql" || cfg.Notify.Driver != "log" {
		t.Fatalf("unexpected drivers: %+v", cfg)
	}
	if cfg.UnlockTokenTTL != 7*24*time.Hour {
		t.Fatalf("ttl = %v", cfg.UnlockTokenTTL)
	}
	if cfg.PublicBaseURL != "https://addonware.de" {
		t.Fatalf("base url not trimmed: %q", cfg.PublicBaseURL)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadRequiresSMTPHost(t *testing.T) {
	t.Setenv("NOTIFY_DRIVER", "smtp")
	t.Setenv("SMTP_HOST", "")
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
