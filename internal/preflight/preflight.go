package preflight

import (
	"context"
	"path/filepath"
	"time"

	"transcribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckAPI(ctx, cfg.API.BaseURL))

	if cfg.AuthEnabled() {
		results = append(results, CheckAuth(ctx, cfg.Auth.URL, cfg.Auth.AnonKey))
		results = append(results, CheckDirectoryAccess("Session directory", filepath.Dir(cfg.Auth.SessionFile)))
		results = append(results, CheckSessionFile(cfg.Auth.SessionFile, time.Now()))
	} else {
		results = append(results, Result{Name: "Auth provider", Passed: true, Skipped: true, Detail: "not configured"})
	}

	if cfg.Cache.Enabled {
		results = append(results, CheckDirectoryAccess("Cache directory", filepath.Dir(cfg.Cache.Path)))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			return true
		}
	}
	return false
}
