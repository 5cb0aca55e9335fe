package config

const (
	defaultConfigPath       = "~/.config/printpal/config.toml"
	projectConfigName       = "printpal.toml"
	jobsDBName              = "jobs.db"
	apiKeyEnv               = "PRINTPAL_API_KEY"
	baseURLEnv              = "PRINTPAL_BASE_URL"
	defaultBaseURL          = "https://printpal.io"
	defaultRequestTimeout   = 60
	defaultUploadTimeout    = 120
	defaultDownloadTimeout  = 300
	defaultRateLimit        = 50
	defaultQuality          = "default"
	defaultFormat           = "stl"
	defaultSteps            = 20
	defaultGuidance         = 5.0
	defaultOctree           = 256
	defaultPollInterval     = 5
	defaultBatchConcurrency = 5
	maxBatchConcurrency     = 5
	samplePlaceholderKey    = "your_printpal_api_key_here"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:            defaultBaseURL,
			RequestTimeout:     defaultRequestTimeout,
			UploadTimeout:      defaultUploadTimeout,
			DownloadTimeout:    defaultDownloadTimeout,
			RateLimitPerMinute: defaultRateLimit,
		},
		Generation: Generation{
			Quality:      defaultQuality,
			Format:       defaultFormat,
			Steps:        defaultSteps,
			Guidance:     defaultGuidance,
			Octree:       defaultOctree,
			PollInterval: defaultPollInterval,
		},
		Paths: Paths{
			StateDir: defaultStateDir(),
		},
		Batch: Batch{
			MaxConcurrent: defaultBatchConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
