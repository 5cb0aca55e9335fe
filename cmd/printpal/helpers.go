package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
)

// generationFlags are shared by generate, text and batch.
type generationFlags struct {
	quality  string
	format   string
	steps    int
	guidance float64
	octree   int
}

func (f *generationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.quality, "quality", "q", "", "Quality tier (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: stl, glb, obj, ply, fbx")
	cmd.Flags().IntVar(&f.steps, "steps", 0, "Inference steps, 1-50 (default, high and ultra only)")
	cmd.Flags().Float64Var(&f.guidance, "guidance", 0, "Guidance scale, 0.5-10.0 (default, high and ultra only)")
	cmd.Flags().IntVar(&f.octree, "octree", 0, "Octree resolution: 128, 256 or 512 (default, high and ultra only)")
}

// request starts from the configured defaults and applies flags the user set.
// When no format was chosen and outputPath has a known model extension, the
// format follows the extension.
func (f *generationFlags) request(cmd *cobra.Command, cfg *config.Config, outputPath string) (printpal.GenerationRequest, error) {
	req := cfg.GenerationRequest()
	flags := cmd.Flags()
	if flags.Changed("quality") {
		q, err := printpal.ParseQuality(f.quality)
		if err != nil {
			return req, err
		}
		req.Quality = q
	}
	switch {
	case flags.Changed("format"):
		format, err := printpal.ParseFormat(f.format)
		if err != nil {
			return req, err
		}
		req.Format = format
	case outputPath != "":
		if format, err := printpal.ParseFormat(filepath.Ext(outputPath)); err == nil {
			req.Format = format
		}
	}
	if flags.Changed("steps") {
		req.NumInferenceSteps = f.steps
	}
	if flags.Changed("guidance") {
		req.GuidanceScale = f.guidance
	}
	if flags.Changed("octree") {
		req.OctreeResolution = f.octree
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	if !req.Quality.IsSuper() {
		// Validate fills zero knobs with defaults, so explicit zeros are checked here.
		for _, knob := range []struct {
			flag string
			zero bool
			rule string
		}{
			{"steps", f.steps == 0, "between 1 and 50"},
			{"guidance", f.guidance == 0, "between 0.5 and 10.0"},
			{"octree", f.octree == 0, "128, 256, or 512"},
		} {
			if knob.zero && flags.Changed(knob.flag) {
				return req, &printpal.Error{Kind: printpal.KindValidation, Message: fmt.Sprintf("--%s must be %s", knob.flag, knob.rule)}
			}
		}
	}
	return req, nil
}

// waitFlags are shared by commands that poll for completion.
type waitFlags struct {
	pollInterval time.Duration
	timeout      time.Duration
}

func (w *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&w.pollInterval, "poll-interval", 0, "Status poll interval (default from config)")
	cmd.Flags().DurationVar(&w.timeout, "timeout", 0, "Maximum time to wait (default derived from the quality tier)")
}

func (w *waitFlags) options(cmd *cobra.Command, cfg *config.Config) printpal.WaitOptions {
	opts := printpal.WaitOptions{
		PollInterval: cfg.PollInterval(),
		Timeout:      cfg.WaitTimeout(),
	}
	if cmd.Flags().Changed("poll-interval") && w.pollInterval > 0 {
		opts.PollInterval = w.pollInterval
	}
	if cmd.Flags().Changed("timeout") && w.timeout > 0 {
		opts.Timeout = w.timeout
	}
	return opts
}

// progressPrinter reports status transitions on w, skipping repeats.
func progressPrinter(w io.Writer, start time.Time) func(printpal.GenerationStatus) error {
	last := ""
	return func(status printpal.GenerationStatus) error {
		label := status.Status
		if status.ExternalState != "" {
			label = status.Status + " (" + status.ExternalState + ")"
		}
		if label == last {
			return nil
		}
		last = label
		fmt.Fprintf(w, "  %s  %s\n", formatElapsed(time.Since(start)), label)
		return nil
	}
}

// outputTarget picks where a download lands: the explicit path, else the
// configured output directory, else the working directory.
func outputTarget(explicit string, cfg *config.Config) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if cfg != nil {
		return cfg.Paths.OutputDir
	}
	return ""
}

func tierTitle(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
