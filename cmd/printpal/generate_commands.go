package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/jobs"
	"github.com/printpal-io/printpal-go/internal/logging"
)

type generateOptions struct {
	gen     generationFlags
	wait    waitFlags
	output  string
	noWait  bool
	jsonOut bool
}

func (o *generateOptions) register(cmd *cobra.Command) {
	o.gen.register(cmd)
	o.wait.register(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Output file or directory (default from config)")
	cmd.Flags().BoolVar(&o.noWait, "no-wait", false, "Submit and return immediately; fetch later with 'printpal download'")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "Output as JSON")
}

type submitFunc func(ctx context.Context, client *printpal.Client, req printpal.GenerationRequest) (*printpal.GenerationResult, error)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate <image>",
		Short: "Generate a 3D model from an image",
		Long: `Upload an image, wait for the model and download it.

Image generations accept every quality tier. The numeric knobs (--steps,
--guidance, --octree) only apply to the default, high and ultra tiers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image := args[0]
			source := image
			if abs, err := filepath.Abs(image); err == nil {
				source = abs
			}
			return runGeneration(cmd, ctx, &opts, jobs.InputImage, source,
				func(c context.Context, client *printpal.Client, req printpal.GenerationRequest) (*printpal.GenerationResult, error) {
					return client.GenerateFromImage(c, image, req)
				})
		},
	}
	opts.register(cmd)
	return cmd
}

func newTextCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "text <prompt>",
		Short: "Generate a 3D model from a text description",
		Long: `Describe an object, wait for the model and download it.

Text prompts support the default, high and ultra tiers only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			return runGeneration(cmd, ctx, &opts, jobs.InputPrompt, prompt,
				func(c context.Context, client *printpal.Client, req printpal.GenerationRequest) (*printpal.GenerationResult, error) {
					return client.GenerateFromPrompt(c, prompt, req)
				})
		},
	}
	opts.register(cmd)
	return cmd
}

func runGeneration(cmd *cobra.Command, ctx *commandContext, opts *generateOptions, kind jobs.InputKind, source string, submit submitFunc) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	req, err := opts.gen.request(cmd, cfg, opts.output)
	if err != nil {
		return err
	}
	logger := logging.NewComponentLogger(ctx.logger(cmd), "cli")

	return ctx.withClient(cmd, func(client *printpal.Client) error {
		return ctx.withJobs(func(store *jobs.Store) error {
			runCtx := cmd.Context()
			start := time.Now()

			result, err := submit(runCtx, client, req)
			if err != nil {
				return err
			}
			uid := result.GenerationUID
			if err := store.Record(runCtx, jobs.FromResult(result, kind, source, req)); err != nil {
				logger.Warn("failed to record job", logging.FieldGenerationUID, uid, logging.Error(err))
			}

			view := newSubmissionView(result, req)
			out := cmd.OutOrStdout()
			if !opts.jsonOut {
				fmt.Fprintf(out, "Submitted generation %s (%s, %s, %d credits)\n", uid, tierTitle(view.Quality), view.Format, result.CreditsUsed)
			}
			if opts.noWait {
				if opts.jsonOut {
					return writeJSON(cmd, view)
				}
				fmt.Fprintf(out, "Check progress with 'printpal status %s' and fetch it with 'printpal download %s'\n", uid, uid)
				return nil
			}

			waitOpts := opts.wait.options(cmd, cfg)
			printProgress := progressPrinter(cmd.ErrOrStderr(), start)
			waitOpts.OnStatus = func(status printpal.GenerationStatus) error {
				if _, err := store.UpdateStatus(runCtx, uid, status.Status, ""); err != nil {
					logger.Warn("failed to record status", logging.FieldGenerationUID, uid, logging.Error(err))
				}
				return printProgress(status)
			}
			if _, err := client.WaitForCompletion(runCtx, uid, waitOpts); err != nil {
				return waitFailure(cmd, store, uid, err)
			}

			saved, err := client.Download(runCtx, uid, outputTarget(opts.output, cfg))
			if err != nil {
				return err
			}
			if _, err := store.MarkDownloaded(runCtx, uid, saved); err != nil {
				logger.Warn("failed to record download", logging.FieldGenerationUID, uid, logging.Error(err))
			}

			if opts.jsonOut {
				view.Status = printpal.StatusCompleted
				view.OutputPath = saved
				return writeJSON(cmd, view)
			}
			fmt.Fprintf(out, "Saved model to %s (%s)\n", saved, formatElapsed(time.Since(start)))
			return nil
		})
	})
}

// waitFailure records a failed generation and adds a resume hint to timeouts.
func waitFailure(cmd *cobra.Command, store *jobs.Store, uid string, err error) error {
	switch {
	case errors.Is(err, printpal.ErrGeneration):
		_, _ = store.UpdateStatus(cmd.Context(), uid, printpal.StatusFailed, err.Error())
	case errors.Is(err, printpal.ErrTimeout):
		fmt.Fprintf(cmd.ErrOrStderr(), "Generation %s is still running; resume with 'printpal download %s --wait'\n", uid, uid)
	}
	return err
}
