package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizeInsights()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return c.normalizeLogging()
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("TRANSCRIBE_API_URL"); ok && strings.TrimSpace(value) != "" && c.API.BaseURL == defaultAPIBaseURL {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if c.API.RequestTimeoutSeconds <= 0 {
		c.API.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeAuth() error {
	if c.Auth.URL == "" {
		if value, ok := os.LookupEnv("SUPABASE_URL"); ok {
			c.Auth.URL = value
		}
	}
	if c.Auth.AnonKey == "" {
		if value, ok := os.LookupEnv("SUPABASE_ANON_KEY"); ok {
			c.Auth.AnonKey = value
		}
	}
	c.Auth.URL = strings.TrimRight(strings.TrimSpace(c.Auth.URL), "/")
	c.Auth.AnonKey = strings.TrimSpace(c.Auth.AnonKey)
	if strings.TrimSpace(c.Auth.SessionFile) == "" {
		c.Auth.SessionFile = defaultSessionFile
	}
	var err error
	if c.Auth.SessionFile, err = expandPath(c.Auth.SessionFile); err != nil {
		return fmt.Errorf("auth.session_file: %w", err)
	}
	if c.Auth.RefreshLeewaySeconds < 0 {
		c.Auth.RefreshLeewaySeconds = 0
	}
	return nil
}

func (c *Config) normalizeSync() {
	if c.Sync.IntervalMS <= 0 {
		c.Sync.IntervalMS = defaultSyncIntervalMS
	}
	if c.Sync.RetryBaseMS <= 0 {
		c.Sync.RetryBaseMS = defaultRetryBaseMS
	}
	if c.Sync.MaxRetries < 0 {
		c.Sync.MaxRetries = 0
	}
}

func (c *Config) normalizeInsights() {
	if c.Insights.StartDelayMS < 0 {
		c.Insights.StartDelayMS = defaultStartDelayMS
	}
	if c.Insights.InitialAttempts <= 0 {
		c.Insights.InitialAttempts = defaultInitialAttempts
	}
	if c.Insights.InitialIntervalMS <= 0 {
		c.Insights.InitialIntervalMS = defaultInitialIntervalMS
	}
	if c.Insights.RegenerateAttempts <= 0 {
		c.Insights.RegenerateAttempts = defaultRegenerateAttempts
	}
	if c.Insights.RegenerateIntervalMS <= 0 {
		c.Insights.RegenerateIntervalMS = defaultRegenerateIntervalMS
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
