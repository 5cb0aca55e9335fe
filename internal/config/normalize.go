package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	c.normalizeGeneration()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if c.Batch.MaxConcurrent <= 0 {
		c.Batch.MaxConcurrent = defaultBatchConcurrency
	}
	c.normalizeLogging()
	return nil
}

// normalizeAPI applies environment overrides. PRINTPAL_API_KEY wins over the
// file so a key can be rotated without editing config.
func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv(apiKeyEnv); ok && strings.TrimSpace(value) != "" {
		c.API.APIKey = value
	}
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)

	if value, ok := os.LookupEnv(baseURLEnv); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}

	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
	if c.API.UploadTimeout <= 0 {
		c.API.UploadTimeout = defaultUploadTimeout
	}
	if c.API.DownloadTimeout <= 0 {
		c.API.DownloadTimeout = defaultDownloadTimeout
	}
	if c.API.RateLimitPerMinute < 0 {
		c.API.RateLimitPerMinute = 0
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Quality = strings.ToLower(strings.TrimSpace(c.Generation.Quality))
	if c.Generation.Quality == "" {
		c.Generation.Quality = defaultQuality
	}
	c.Generation.Format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Generation.Format)), ".")
	if c.Generation.Format == "" {
		c.Generation.Format = defaultFormat
	}
	if c.Generation.Steps == 0 {
		c.Generation.Steps = defaultSteps
	}
	if c.Generation.Guidance == 0 {
		c.Generation.Guidance = defaultGuidance
	}
	if c.Generation.Octree == 0 {
		c.Generation.Octree = defaultOctree
	}
	if c.Generation.PollInterval <= 0 {
		c.Generation.PollInterval = defaultPollInterval
	}
	if c.Generation.Timeout < 0 {
		c.Generation.Timeout = 0
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir()
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
