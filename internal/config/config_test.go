package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GeminiModelID != "gemini-2.5-flash" {
		t.Errorf("unexpected default model: %s", cfg.GeminiModelID)
	}
	if cfg.ConversationTTL != 30*time.Minute {
		t.Errorf("unexpected conversation TTL: %s", cfg.ConversationTTL)
	}
	if cfg.SlotWindowDays != 7 || cfg.SlotIntervalMinutes != 30 {
		t.Errorf("unexpected slot defaults: %d days / %d minutes", cfg.SlotWindowDays, cfg.SlotIntervalMinutes)
	}
	if cfg.EmailProvider != "stub" {
		t.Errorf("expected stub email provider by default, got %s", cfg.EmailProvider)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CLASSIFIER_TIMEOUT", "3s")
	t.Setenv("USE_REDIS_STATE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.ClassifierTimeout != 3*time.Second {
		t.Errorf("expected 3s classifier timeout, got %s", cfg.ClassifierTimeout)
	}
	if !cfg.UseRedisState {
		t.Error("expected redis state enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("expected normalized email provider, got %s", cfg.EmailProvider)
	}
}

func TestGetEnvAsIntFallback(t *testing.T) {
	t.Setenv("SLOT_WINDOW_DAYS", "not-a-number")
	cfg := Load()
	if cfg.SlotWindowDays != 7 {
		t.Errorf("expected fallback to 7, got %d", cfg.SlotWindowDays)
	}
}
