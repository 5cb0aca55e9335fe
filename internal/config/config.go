package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/printpal-io/printpal-go/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains connection settings for the PrintPal service.
type API struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"`
	RequestTimeout     int    `toml:"request_timeout"`
	UploadTimeout      int    `toml:"upload_timeout"`
	DownloadTimeout    int    `toml:"download_timeout"`
	RateLimitPerMinute int    `toml:"rate_limit_per_minute"`
}

// Generation contains the defaults applied to new generation requests.
// A Timeout of zero derives the wait deadline from the quality tier.
type Generation struct {
	Quality      string  `toml:"quality"`
	Format       string  `toml:"format"`
	Steps        int     `toml:"steps"`
	Guidance     float64 `toml:"guidance"`
	Octree       int     `toml:"octree"`
	PollInterval int     `toml:"poll_interval"`
	Timeout      int     `toml:"timeout"`
}

// Paths contains output and state locations.
type Paths struct {
	// OutputDir receives downloaded models. Empty means the working directory.
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
}

// Batch contains settings for multi-image runs.
type Batch struct {
	MaxConcurrent int `toml:"max_concurrent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the printpal CLI.
type Config struct {
	API        API        `toml:"api"`
	Generation Generation `toml:"generation"`
	Paths      Paths      `toml:"paths"`
	Batch      Batch      `toml:"batch"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, when configured, the
// output directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if c.Paths.OutputDir != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobsDBPath returns the location of the generation ledger.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.StateDir, jobsDBName)
}

// BatchLockPath returns the lock file guarding batch runs into dir.
func BatchLockPath(dir string) string {
	return filepath.Join(dir, ".printpal-batch.lock")
}

// RequestTimeout returns the deadline for regular API calls.
func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.API.RequestTimeout)
}

// UploadTimeout returns the deadline for generation submissions.
func (c *Config) UploadTimeout() time.Duration {
	return seconds(c.API.UploadTimeout)
}

// DownloadTimeout returns the deadline for artifact transfers.
func (c *Config) DownloadTimeout() time.Duration {
	return seconds(c.API.DownloadTimeout)
}

// PollInterval returns the status polling cadence.
func (c *Config) PollInterval() time.Duration {
	return seconds(c.Generation.PollInterval)
}

// WaitTimeout returns the configured wait deadline; zero means derive it
// from the quality tier.
func (c *Config) WaitTimeout() time.Duration {
	return seconds(c.Generation.Timeout)
}

// RequireAPIKey reports a helpful error when no key is configured.
func (c *Config) RequireAPIKey() error {
	if key := strings.TrimSpace(c.API.APIKey); key != "" && key != samplePlaceholderKey {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("api.api_key is required. Set %s or edit %s (create with 'printpal config init')", apiKeyEnv, defaultPath)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultStateDir() string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "printpal")
	}
	return "~/.local/state/printpal"
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is left untouched unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat config: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Marshal renders the effective configuration as TOML with the API key redacted.
func (c *Config) Marshal() ([]byte, error) {
	redacted := *c
	if redacted.API.APIKey != "" {
		redacted.API.APIKey = redactKey(redacted.API.APIKey)
	}
	return toml.Marshal(redacted)
}

func redactKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
