package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/printpal-io/printpal-go"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url %q must be an absolute URL", c.API.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"api.request_timeout":  c.API.RequestTimeout,
		"api.upload_timeout":   c.API.UploadTimeout,
		"api.download_timeout": c.API.DownloadTimeout,
	})
}

// validateGeneration runs the client's own request validation so config and
// flags share one set of rules.
func (c *Config) validateGeneration() error {
	req := c.GenerationRequest()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	if c.Generation.PollInterval <= 0 {
		return errors.New("generation.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > maxBatchConcurrency {
		return fmt.Errorf("batch.max_concurrent must be between 1 and %d", maxBatchConcurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

// GenerationRequest returns the configured generation defaults as a request.
func (c *Config) GenerationRequest() printpal.GenerationRequest {
	return printpal.GenerationRequest{
		Quality:           printpal.Quality(c.Generation.Quality),
		Format:            printpal.Format(c.Generation.Format),
		NumInferenceSteps: c.Generation.Steps,
		GuidanceScale:     c.Generation.Guidance,
		OctreeResolution:  c.Generation.Octree,
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
