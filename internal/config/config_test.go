package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"transcribe/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_ANON_KEY", "")
	t.Setenv("NTFY_TOPIC", "")
	t.Setenv("TRANSCRIBE_API_URL", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	home := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.API.BaseURL != "http://localhost:8002/api" {
		t.Fatalf("unexpected base url: %q", cfg.API.BaseURL)
	}
	wantSession := filepath.Join(home, ".config", "transcribe", "session.json")
	if cfg.Auth.SessionFile != wantSession {
		t.Fatalf("unexpected session file: got %q want %q", cfg.Auth.SessionFile, wantSession)
	}
	if cfg.AuthEnabled() {
		t.Fatal("expected auth disabled without url and key")
	}
	if cfg.SyncInterval() != 3*time.Second {
		t.Fatalf("unexpected sync interval: %v", cfg.SyncInterval())
	}
	if cfg.RetryBase() != 2*time.Second || cfg.Sync.MaxRetries != 3 {
		t.Fatalf("unexpected retry policy: %v %d", cfg.RetryBase(), cfg.Sync.MaxRetries)
	}
	if cfg.Insights.InitialAttempts != 60 || cfg.Insights.RegenerateAttempts != 90 {
		t.Fatalf("unexpected insight budgets: %+v", cfg.Insights)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadReadsFileAndEnvFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	cfg.API.BaseURL = "https://api.example.com/api/"
	cfg.Sync.IntervalMS = 5000
	cfg.Logging.Format = "JSON"
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if loaded.API.BaseURL != "https://api.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", loaded.API.BaseURL)
	}
	if loaded.Sync.IntervalMS != 5000 {
		t.Fatalf("expected interval from file, got %d", loaded.Sync.IntervalMS)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", loaded.Logging.Format)
	}
	if loaded.Auth.URL != "https://project.supabase.co" || loaded.Auth.AnonKey != "anon" {
		t.Fatalf("expected auth env fallback, got %+v", loaded.Auth)
	}
	if !loaded.AuthEnabled() {
		t.Fatal("expected auth enabled")
	}
}

func TestLoadAppliesDotEnv(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".env", []byte("NTFY_TOPIC=https://ntfy.sh/jobs\nTRANSCRIBE_API_URL=http://10.0.0.5:8002/api\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	os.Unsetenv("NTFY_TOPIC")
	os.Unsetenv("TRANSCRIBE_API_URL")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/jobs" {
		t.Fatalf("expected topic from .env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:8002/api" {
		t.Fatalf("expected api url from .env, got %q", cfg.API.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"scheme", func(c *config.Config) { c.API.BaseURL = "ftp://host/api" }, "api.base_url"},
		{"auth half configured", func(c *config.Config) { c.Auth.URL = "https://x.supabase.co" }, "auth.anon_key"},
		{"interval", func(c *config.Config) { c.Sync.IntervalMS = 0 }, "sync.interval_ms"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestCreateSampleParses(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Insights.RegenerateIntervalMS != 2000 {
		t.Fatalf("unexpected sample value: %d", cfg.Insights.RegenerateIntervalMS)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := isolate(t)
	got, err := config.ExpandPath("~/data/x.db")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "data", "x.db") {
		t.Fatalf("unexpected path %q", got)
	}
}
