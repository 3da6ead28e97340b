package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresBaseURL(t *testing.T) {
	t.Setenv("TENNIS_API_BASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without TENNIS_API_BASE_URL")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TENNIS_API_BASE_URL", "http://tennis.local/api/")
	t.Setenv("ALERT_INTERVAL_SECONDS", "")
	t.Setenv("SMTP_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TennisAPIBaseURL != "http://tennis.local/api" {
		t.Fatalf("base url not trimmed: %q", cfg.TennisAPIBaseURL)
	}
	if cfg.AlertInterval != DefaultAlertInterval {
		t.Fatalf("interval=%s", cfg.AlertInterval)
	}
	if cfg.SMTPReady() {
		t.Fatalf("smtp should not be ready without host")
	}
	if cfg.UsePostgres() {
		t.Fatalf("postgres should be off by default")
	}
}

func TestLoad_IntervalFloor(t *testing.T) {
	t.Setenv("TENNIS_API_BASE_URL", "http://tennis.local")
	t.Setenv("ALERT_INTERVAL_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AlertInterval != 30*time.Second {
		t.Fatalf("interval=%s, want 30s", cfg.AlertInterval)
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("X_LIST", " a, ,b ")
	got := envList("X_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("envList=%v", got)
	}
}
