package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/printpal-io/printpal-go/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths accepts "stdout", "stderr" or file paths. Defaults to stderr
	// so command output on stdout stays machine readable.
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))

	writer, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	return newLogger(writer, opts.Format, levelVar, opts.Development)
}

// NewWithWriter builds a logger writing to w. Used by tests and by callers
// that already own an output stream.
func NewWithWriter(w io.Writer, format, level string) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	return newLogger(w, format, levelVar, false)
}

func newLogger(w io.Writer, format string, levelVar *slog.LevelVar, development bool) (*slog.Logger, error) {
	addSource := development || levelVar.Level() <= slog.LevelDebug

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(w, levelVar, addSource)
	case "console":
		handler = newConsoleHandler(w, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriters(paths []string) (io.Writer, error) {
	if len(paths) == 0 {
		return os.Stderr, nil
	}
	seen := map[string]struct{}{}
	var writers []io.Writer
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("ensure log directory: %w", err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
