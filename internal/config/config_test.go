package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("CLEANUP_TRIGGER_SECRET", "this-is-a-very-long-trigger-secret-32+")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"
  write_timeout: "15s"
  idle_timeout: "30s"
  shutdown_timeout: "5s"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2

redis:
  addr: "localhost:6379"
  notification_channel: "notifications:test"

drafts:
  expiry_days: 14
  max_drafts_per_user: 3

cleanup:
  trigger_secret: "this-is-a-very-long-trigger-secret-32+"
  batch_size: 50
  trigger_rate_per_minute: 5

log:
  level: "debug"
  format: "text"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Drafts.ExpiryDays != 14 {
		t.Errorf("Drafts.ExpiryDays = %d, want 14", cfg.Drafts.ExpiryDays)
	}
	if cfg.Drafts.MaxDraftsPerUser != 3 {
		t.Errorf("Drafts.MaxDraftsPerUser = %d, want 3", cfg.Drafts.MaxDraftsPerUser)
	}
	if cfg.Cleanup.BatchSize != 50 {
		t.Errorf("Cleanup.BatchSize = %d, want 50", cfg.Cleanup.BatchSize)
	}
	if !cfg.Redis.Enabled() {
		t.Error("Redis.Enabled should be true with addr set")
	}
	if cfg.Redis.NotificationChannel != "notifications:test" {
		t.Errorf("Redis.NotificationChannel = %q", cfg.Redis.NotificationChannel)
	}
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Drafts.ExpiryDays != 7 {
		t.Errorf("Drafts.ExpiryDays default = %d, want 7", cfg.Drafts.ExpiryDays)
	}
	if cfg.Drafts.MaxDraftsPerUser != 5 {
		t.Errorf("Drafts.MaxDraftsPerUser default = %d, want 5", cfg.Drafts.MaxDraftsPerUser)
	}
	if cfg.Cleanup.BatchSize != 100 {
		t.Errorf("Cleanup.BatchSize default = %d, want 100", cfg.Cleanup.BatchSize)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled without an addr")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format default = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DRAFTS_EXPIRY_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Drafts.ExpiryDays != 30 {
		t.Errorf("Drafts.ExpiryDays = %d, want 30 (env wins)", cfg.Drafts.ExpiryDays)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit CONFIG_PATH")
	}
}

func TestValidate_ShortTriggerSecret(t *testing.T) {
	validEnv(t)
	t.Setenv("CLEANUP_TRIGGER_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for short trigger secret")
	}
	if !strings.Contains(err.Error(), "trigger_secret") {
		t.Errorf("error should mention trigger_secret: %v", err)
	}
}

func TestValidate_DraftBounds(t *testing.T) {
	validEnv(t)

	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero expiry days", "DRAFTS_EXPIRY_DAYS", "0"},
		{"negative quota", "DRAFTS_MAX_PER_USER", "-1"},
		{"zero body limit", "DRAFTS_MAX_BODY_BYTES", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
