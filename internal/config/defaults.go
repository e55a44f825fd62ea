package config

const (
	defaultConfigPath            = "~/.config/transcribe/config.toml"
	defaultAPIBaseURL            = "http://localhost:8002/api"
	defaultRequestTimeoutSeconds = 30
	defaultSessionFile           = "~/.config/transcribe/session.json"
	defaultRefreshLeewaySeconds  = 60
	defaultSyncIntervalMS        = 3000
	defaultRetryBaseMS           = 2000
	defaultMaxRetries            = 3
	defaultStartDelayMS          = 1000
	defaultInitialAttempts       = 60
	defaultInitialIntervalMS     = 1000
	defaultRegenerateAttempts    = 90
	defaultRegenerateIntervalMS  = 2000
	defaultCachePath             = "~/.local/share/transcribe/snapshot.db"
	defaultNotifyTimeout         = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:               defaultAPIBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Auth: Auth{
			SessionFile:          defaultSessionFile,
			RefreshLeewaySeconds: defaultRefreshLeewaySeconds,
		},
		Sync: Sync{
			IntervalMS:  defaultSyncIntervalMS,
			RetryBaseMS: defaultRetryBaseMS,
			MaxRetries:  defaultMaxRetries,
		},
		Insights: Insights{
			StartDelayMS:         defaultStartDelayMS,
			InitialAttempts:      defaultInitialAttempts,
			InitialIntervalMS:    defaultInitialIntervalMS,
			RegenerateAttempts:   defaultRegenerateAttempts,
			RegenerateIntervalMS: defaultRegenerateIntervalMS,
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
