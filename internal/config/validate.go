package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"sync.interval_ms":                c.Sync.IntervalMS,
		"sync.retry_base_ms":              c.Sync.RetryBaseMS,
		"insights.initial_attempts":       c.Insights.InitialAttempts,
		"insights.initial_interval_ms":    c.Insights.InitialIntervalMS,
		"insights.regenerate_attempts":    c.Insights.RegenerateAttempts,
		"insights.regenerate_interval_ms": c.Insights.RegenerateIntervalMS,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.URL == "" && c.Auth.AnonKey == "" {
		return nil
	}
	if c.Auth.URL == "" {
		return errors.New("auth.url must be set when auth.anon_key is configured (or set SUPABASE_URL)")
	}
	if c.Auth.AnonKey == "" {
		return errors.New("auth.anon_key must be set when auth.url is configured (or set SUPABASE_ANON_KEY)")
	}
	return validateHTTPURL("auth.url", c.Auth.URL)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateHTTPURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
