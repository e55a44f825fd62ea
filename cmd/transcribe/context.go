package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"transcribe/internal/apiclient"
	"transcribe/internal/auth"
	"transcribe/internal/config"
	"transcribe/internal/errclass"
	"transcribe/internal/logging"
	"transcribe/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger

	authOnce sync.Once
	auth     *auth.Manager
	authErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) authManager() (*auth.Manager, error) {
	c.authOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.authErr = err
			return
		}
		c.auth, c.authErr = auth.NewFromConfig(cfg, c.log())
	})
	return c.auth, c.authErr
}

// requireAuth returns the manager or a hint when the provider is missing.
func (c *commandContext) requireAuth() (*auth.Manager, error) {
	mgr, err := c.authManager()
	if err != nil {
		return nil, err
	}
	if !mgr.Enabled() {
		return nil, errors.New("auth provider not configured; set [auth] url and anon_key (or SUPABASE_URL / SUPABASE_ANON_KEY)")
	}
	return mgr, nil
}

func (c *commandContext) apiClient() (*apiclient.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	mgr, err := c.authManager()
	if err != nil {
		return nil, err
	}
	return apiclient.NewFromConfig(cfg, mgr, c.log())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// userError converts classified failures to the localized message shown to
// users. Configuration and usage errors pass through unchanged.
func userError(err error) string {
	if err == nil {
		return ""
	}
	if kind := services.Kind(err); kind != "" && kind != "unknown" {
		return errclass.ToUserMessage(err)
	}
	return err.Error()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
