package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/printpal-io/printpal-go/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.APIKey = "test"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.OutputDir = filepath.Join(base, "models")

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

// WithAPIKey sets the API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.APIKey = key
	}
}

// WithBaseURL points the test config at a fake service.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithPollInterval overrides the status poll interval in seconds.
func WithPollInterval(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.PollInterval = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
