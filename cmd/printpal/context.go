package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
	"github.com/printpal-io/printpal-go/internal/jobs"
	"github.com/printpal-io/printpal-go/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
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

// logger writes to the command's stderr so stdout stays clean for output.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	level := cfg.Logging.Level
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Format, level)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) newClient(cmd *cobra.Command) (*printpal.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	opts := []printpal.Option{
		printpal.WithLogger(c.logger(cmd)),
		printpal.WithTimeouts(cfg.RequestTimeout(), cfg.UploadTimeout(), cfg.DownloadTimeout()),
		printpal.WithRateLimit(cfg.API.RateLimitPerMinute),
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, printpal.WithBaseURL(cfg.API.BaseURL))
	}
	return printpal.New(cfg.API.APIKey, opts...)
}

func (c *commandContext) withClient(cmd *cobra.Command, fn func(*printpal.Client) error) error {
	client, err := c.newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) withJobs(fn func(*jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
