package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
	"github.com/printpal-io/printpal-go/internal/jobs"
	"github.com/printpal-io/printpal-go/internal/logging"
)

// ErrLocked reports that another batch is writing to the same output directory.
var ErrLocked = errors.New("another batch run holds the output directory lock")

// Generator is the subset of *printpal.Client a batch drives.
type Generator interface {
	GenerateFromImage(ctx context.Context, imagePath string, req printpal.GenerationRequest) (*printpal.GenerationResult, error)
	WaitForCompletion(ctx context.Context, uid string, opts printpal.WaitOptions) (*printpal.GenerationStatus, error)
	Download(ctx context.Context, uid, outputPath string) (string, error)
}

// Recorder persists batch progress. *jobs.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, job jobs.Job) error
	UpdateStatus(ctx context.Context, uid, status, errorMessage string) (bool, error)
	MarkDownloaded(ctx context.Context, uid, outputPath string) (bool, error)
}

// Options configures a Runner.
type Options struct {
	OutputDir     string
	Request       printpal.GenerationRequest
	Wait          printpal.WaitOptions
	MaxConcurrent int
	Logger        *slog.Logger
	Recorder      Recorder
	// OnResult is called once per image as it finishes. Calls are serialized.
	OnResult func(Result)
}

// Result is the outcome of one image.
type Result struct {
	Image         string
	GenerationUID string
	OutputPath    string
	CreditsUsed   int
	Duration      time.Duration
	Err           error
}

// Succeeded reports whether the model was downloaded.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Summary aggregates a batch run. Results keep the input order.
type Summary struct {
	RunID       string
	Results     []Result
	Succeeded   int
	Failed      int
	CreditsUsed int
	Elapsed     time.Duration
}

// Err joins every per-image failure, or returns nil when all succeeded.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Image, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Runner executes batches.
type Runner struct {
	gen    Generator
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner validates opts and returns a Runner.
func NewRunner(gen Generator, opts Options) (*Runner, error) {
	if gen == nil {
		return nil, errors.New("batch: generator is required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, errors.New("batch: output directory is required")
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = printpal.MaxConcurrentGenerations
	}
	if opts.MaxConcurrent > printpal.MaxConcurrentGenerations {
		return nil, fmt.Errorf("batch: max concurrent %d exceeds service limit %d", opts.MaxConcurrent, printpal.MaxConcurrentGenerations)
	}
	if err := opts.Request.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		gen:    gen,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "batch"),
		now:    time.Now,
	}, nil
}

// Run processes images and returns a summary. The returned error covers
// setup failures (lock, output directory, cancellation before start); per-image
// failures are reported through the summary.
func (r *Runner) Run(ctx context.Context, images []string) (*Summary, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(config.BatchLockPath(r.opts.OutputDir))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}()

	summary := &Summary{
		RunID:   uuid.NewString(),
		Results: make([]Result, len(images)),
	}
	logger := r.logger.With(logging.FieldRunID, summary.RunID)
	logger.Info("batch started",
		"images", len(images),
		"quality", string(r.opts.Request.Quality),
		"format", string(r.opts.Request.Format),
		"max_concurrent", r.opts.MaxConcurrent,
	)
	start := r.now()

	outputs := outputPaths(r.opts.OutputDir, images, r.opts.Request.Format)

	var resultMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxConcurrent)
	for i, image := range images {
		g.Go(func() error {
			res := r.process(gctx, logger, summary.RunID, image, outputs[i])
			summary.Results[i] = res
			if r.opts.OnResult != nil {
				resultMu.Lock()
				r.opts.OnResult(res)
				resultMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range summary.Results {
		summary.CreditsUsed += res.CreditsUsed
		if res.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Elapsed = r.now().Sub(start)
	logger.Info("batch finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"credits_used", summary.CreditsUsed,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (r *Runner) process(ctx context.Context, logger *slog.Logger, runID, image, output string) Result {
	start := r.now()
	res := Result{Image: image}
	logger = logger.With(logging.FieldImage, image)
	finish := func(err error) Result {
		res.Err = err
		res.Duration = r.now().Sub(start)
		if err != nil {
			logger.Warn("image failed", logging.FieldGenerationUID, res.GenerationUID, logging.Error(err))
		} else {
			logger.Info("image finished", logging.FieldGenerationUID, res.GenerationUID, logging.FieldOutput, res.OutputPath, "elapsed", res.Duration)
		}
		return res
	}
	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	submitted, err := r.gen.GenerateFromImage(ctx, image, r.opts.Request)
	if err != nil {
		return finish(err)
	}
	res.GenerationUID = submitted.GenerationUID
	res.CreditsUsed = submitted.CreditsUsed
	logger.Debug("generation submitted", logging.FieldGenerationUID, res.GenerationUID, "credits_used", res.CreditsUsed)

	if r.opts.Recorder != nil {
		job := jobs.FromResult(submitted, jobs.InputImage, image, r.opts.Request)
		job.RunID = runID
		if err := r.opts.Recorder.Record(ctx, job); err != nil {
			logger.Warn("failed to record job", logging.FieldGenerationUID, res.GenerationUID, logging.Error(err))
		}
	}

	wait := r.opts.Wait
	userHook := wait.OnStatus
	wait.OnStatus = func(status printpal.GenerationStatus) error {
		r.recordStatus(ctx, logger, res.GenerationUID, status.Status, "")
		if userHook != nil {
			return userHook(status)
		}
		return nil
	}
	if _, err := r.gen.WaitForCompletion(ctx, res.GenerationUID, wait); err != nil {
		if errors.Is(err, printpal.ErrGeneration) {
			r.recordStatus(ctx, logger, res.GenerationUID, printpal.StatusFailed, err.Error())
		}
		return finish(err)
	}

	saved, err := r.gen.Download(ctx, res.GenerationUID, output)
	if err != nil {
		return finish(err)
	}
	res.OutputPath = saved
	if r.opts.Recorder != nil {
		if _, err := r.opts.Recorder.MarkDownloaded(ctx, res.GenerationUID, saved); err != nil {
			logger.Warn("failed to record download", logging.FieldGenerationUID, res.GenerationUID, logging.Error(err))
		}
	}
	return finish(nil)
}

func (r *Runner) recordStatus(ctx context.Context, logger *slog.Logger, uid, status, message string) {
	if r.opts.Recorder == nil || status == "" {
		return
	}
	if _, err := r.opts.Recorder.UpdateStatus(ctx, uid, status, message); err != nil {
		logger.Warn("failed to record status", logging.FieldGenerationUID, uid, logging.Error(err))
	}
}

// outputPaths maps each image to <dir>/<stem>.<format>. A name already taken
// by an earlier image (case-insensitively) gets the first free _N suffix, so
// two inputs never write the same file.
func outputPaths(dir string, images []string, format printpal.Format) []string {
	taken := make(map[string]struct{}, len(images))
	out := make([]string, len(images))
	for i, image := range images {
		stem := strings.TrimSuffix(filepath.Base(image), filepath.Ext(image))
		name := stem + "." + string(format)
		for n := 2; ; n++ {
			if _, dup := taken[strings.ToLower(name)]; !dup {
				break
			}
			name = stem + "_" + strconv.Itoa(n) + "." + string(format)
		}
		taken[strings.ToLower(name)] = struct{}{}
		out[i] = filepath.Join(dir, name)
	}
	return out
}
