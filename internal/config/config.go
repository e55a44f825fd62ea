package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains configuration for the transcription REST service.
type API struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Auth contains configuration for the hosted auth provider.
type Auth struct {
	URL                  string `toml:"url"`
	AnonKey              string `toml:"anon_key"`
	SessionFile          string `toml:"session_file"`
	RefreshLeewaySeconds int    `toml:"refresh_leeway_seconds"`
}

// Sync contains timing for the background list refresh.
type Sync struct {
	IntervalMS  int `toml:"interval_ms"`
	RetryBaseMS int `toml:"retry_base_ms"`
	MaxRetries  int `toml:"max_retries"`
}

// Insights contains the polling budget for insight generation.
type Insights struct {
	StartDelayMS         int `toml:"start_delay_ms"`
	InitialAttempts      int `toml:"initial_attempts"`
	InitialIntervalMS    int `toml:"initial_interval_ms"`
	RegenerateAttempts   int `toml:"regenerate_attempts"`
	RegenerateIntervalMS int `toml:"regenerate_interval_ms"`
}

// Cache contains configuration for the offline snapshot cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
}

// Metrics contains the Prometheus exporter bind address. Empty disables it.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for the transcribe client.
//
// Configuration sections by subsystem:
//   - API: transcription service base URL and request timeout
//   - Auth: hosted auth endpoint, anon key, and session persistence
//   - Sync: list refresh interval and network retry backoff
//   - Insights: attempt budgets for insight generation polling
//   - Cache: offline snapshot cache
//   - Notifications: ntfy push notification settings
//   - Metrics: Prometheus exporter
//   - Logging: log format, level, and optional file
type Config struct {
	API           API           `toml:"api"`
	Auth          Auth          `toml:"auth"`
	Sync          Sync          `toml:"sync"`
	Insights      Insights      `toml:"insights"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in
// the working directory is applied to the process environment before env
// fallbacks are resolved; variables already set are left untouched.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("transcribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the parent directories of the session and cache files.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Auth.SessionFile)}
	if c.Cache.Enabled {
		dirs = append(dirs, filepath.Dir(c.Cache.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AuthEnabled reports whether the hosted auth provider is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.URL != "" && c.Auth.AnonKey != ""
}

// RequestTimeout returns the HTTP timeout for API calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// RefreshLeeway returns how long before expiry a token is refreshed.
func (c *Config) RefreshLeeway() time.Duration {
	return time.Duration(c.Auth.RefreshLeewaySeconds) * time.Second
}

// SyncInterval returns the period between background list fetches.
func (c *Config) SyncInterval() time.Duration {
	return milliseconds(c.Sync.IntervalMS)
}

// RetryBase returns the base delay of the linear retry backoff.
func (c *Config) RetryBase() time.Duration {
	return milliseconds(c.Sync.RetryBaseMS)
}

func milliseconds(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration.
func Sample() string {
	return sampleConfig
}
