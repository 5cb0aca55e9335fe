package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/batch"
	"github.com/printpal-io/printpal-go/internal/jobs"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		gen             generationFlags
		wait            waitFlags
		outputDir       string
		maxConcurrent   int
		skipCreditCheck bool
		jsonOut         bool
	)
	cmd := &cobra.Command{
		Use:   "batch <image-or-directory>...",
		Short: "Generate models for many images concurrently",
		Long: `Generate one model per image. Directories contribute their .png, .jpg,
.jpeg and .webp files. Models are written to <output-dir>/<image name>.<format>.

The credit balance is checked before anything is submitted. Failures are
reported per image and do not stop the rest of the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := gen.request(cmd, cfg, "")
			if err != nil {
				return err
			}
			images, err := batch.CollectImages(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-concurrent") {
				maxConcurrent = cfg.Batch.MaxConcurrent
			}
			dir := outputDir
			if dir == "" {
				dir = cfg.Paths.OutputDir
			}
			if dir == "" {
				dir = "."
			}

			return ctx.withClient(cmd, func(client *printpal.Client) error {
				return ctx.withJobs(func(store *jobs.Store) error {
					out := cmd.OutOrStdout()
					progress := cmd.ErrOrStderr()
					if !skipCreditCheck {
						needed, available, err := batch.CheckCredits(cmd.Context(), client, len(images), req.Quality)
						if err != nil {
							return err
						}
						fmt.Fprintf(progress, "%d images, %d credits needed, %d available\n", len(images), needed, available)
					}

					runner, err := batch.NewRunner(client, batch.Options{
						OutputDir:     dir,
						Request:       req,
						Wait:          wait.options(cmd, cfg),
						MaxConcurrent: maxConcurrent,
						Logger:        ctx.logger(cmd),
						Recorder:      store,
						OnResult: func(res batch.Result) {
							if res.Err != nil {
								fmt.Fprintln(progress, renderStatusLine(res.Image, statusError, res.Err.Error(), false))
								return
							}
							fmt.Fprintln(progress, renderStatusLine(res.Image, statusOK, res.OutputPath, false))
						},
					})
					if err != nil {
						return err
					}
					summary, err := runner.Run(cmd.Context(), images)
					if err != nil {
						return err
					}

					if jsonOut {
						if err := writeJSON(cmd, newBatchSummaryView(summary)); err != nil {
							return err
						}
					} else {
						fmt.Fprintln(out, renderTable(
							[]string{"Image", "Generation", "Output", "Credits", "Time"},
							batchRows(summary),
							[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
							[]string{"Total", fmt.Sprintf("%d ok, %d failed", summary.Succeeded, summary.Failed), "", strconv.Itoa(summary.CreditsUsed), formatElapsed(summary.Elapsed)},
						))
						fmt.Fprintf(out, "Run ID: %s\n", summary.RunID)
					}
					if summary.Failed > 0 {
						return fmt.Errorf("%d of %d images failed", summary.Failed, len(summary.Results))
					}
					return nil
				})
			})
		},
	}
	gen.register(cmd)
	wait.register(cmd)
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the models (default from config)")
	cmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "j", printpal.MaxConcurrentGenerations, "Generations in flight at once (1-5)")
	cmd.Flags().BoolVar(&skipCreditCheck, "skip-credit-check", false, "Submit without checking the balance first")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func batchRows(summary *batch.Summary) [][]string {
	rows := make([][]string, 0, len(summary.Results))
	for _, res := range summary.Results {
		output := res.OutputPath
		if res.Err != nil {
			output = "failed: " + truncate(res.Err.Error(), 60)
		}
		rows = append(rows, []string{
			truncate(res.Image, 40),
			valueOrDash(res.GenerationUID),
			output,
			strconv.Itoa(res.CreditsUsed),
			formatElapsed(res.Duration),
		})
	}
	return rows
}

func newBatchSummaryView(summary *batch.Summary) batchSummaryView {
	view := batchSummaryView{
		RunID:       summary.RunID,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		CreditsUsed: summary.CreditsUsed,
		Seconds:     summary.Elapsed.Seconds(),
		Results:     make([]batchResultView, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		rv := batchResultView{
			Image:         res.Image,
			GenerationUID: res.GenerationUID,
			OutputPath:    res.OutputPath,
			CreditsUsed:   res.CreditsUsed,
			Seconds:       res.Duration.Seconds(),
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		view.Results = append(view.Results, rv)
	}
	return view
}
