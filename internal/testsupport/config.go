package testsupport

import (
	"path/filepath"
	"testing"

	"transcribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Auth.SessionFile = filepath.Join(base, "config", "session.json")
	cfgVal.Cache.Path = filepath.Join(base, "cache", "snapshot.db")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIURL points the config at a fake API server.
func WithAPIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithAuth enables the hosted auth provider against url.
func WithAuth(url, anonKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Auth.URL = url
		b.cfg.Auth.AnonKey = anonKey
	}
}

// WithCacheDisabled turns off the snapshot cache.
func WithCacheDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Auth.SessionFile))
}
