package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/jobs"
	"github.com/printpal-io/printpal-go/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		wait    waitFlags
		block   bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "status <generation-uid>",
		Short: "Show the status of a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := strings.TrimSpace(args[0])
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewComponentLogger(ctx.logger(cmd), "cli")
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				return ctx.withJobs(func(store *jobs.Store) error {
					var (
						status *printpal.GenerationStatus
						err    error
					)
					if block {
						opts := wait.options(cmd, cfg)
						opts.OnStatus = progressPrinter(cmd.ErrOrStderr(), time.Now())
						status, err = client.WaitForCompletion(cmd.Context(), uid, opts)
						if err != nil {
							return waitFailure(cmd, store, uid, err)
						}
					} else {
						status, err = client.GetStatus(cmd.Context(), uid)
						if err != nil {
							return err
						}
					}
					if _, err := store.UpdateStatus(cmd.Context(), uid, status.Status, ""); err != nil {
						logger.Warn("failed to record status", logging.FieldGenerationUID, uid, logging.Error(err))
					}

					if jsonOut {
						return writeJSON(cmd, newStatusView(status))
					}
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, renderField("Generation", status.GenerationUID))
					state := status.Status
					if status.ExternalState != "" {
						state = fmt.Sprintf("%s (%s)", status.Status, status.ExternalState)
					}
					fmt.Fprintln(out, renderStatusLine("Status", generationKind(status.Status), state, shouldColorize(out)))
					if status.Quality != "" {
						fmt.Fprintln(out, renderField("Quality", tierTitle(status.Quality)))
					}
					if status.Format != "" {
						fmt.Fprintln(out, renderField("Format", status.Format))
					}
					if status.Resolution != "" {
						fmt.Fprintln(out, renderField("Resolution", status.Resolution))
					}
					fmt.Fprintln(out, renderField("Created", formatTime(status.CreatedAt)))
					if status.CompletedAt != nil {
						fmt.Fprintln(out, renderField("Completed", formatTime(status.CompletedAt)))
					}
					if status.IsCompleted() {
						fmt.Fprintf(out, "Download with 'printpal download %s'\n", status.GenerationUID)
					}
					return nil
				})
			})
		},
	}
	wait.register(cmd)
	cmd.Flags().BoolVarP(&block, "wait", "w", false, "Poll until the generation completes or fails")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		wait   waitFlags
		block  bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "download <generation-uid>",
		Short: "Download a completed model",
		Long: `Download the model of a completed generation.

The file extension always matches the format the service produced; a
mismatching --output extension is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := strings.TrimSpace(args[0])
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := logging.NewComponentLogger(ctx.logger(cmd), "cli")
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				return ctx.withJobs(func(store *jobs.Store) error {
					target := outputTarget(output, cfg)
					var (
						saved string
						err   error
					)
					if block {
						opts := wait.options(cmd, cfg)
						opts.OnStatus = progressPrinter(cmd.ErrOrStderr(), time.Now())
						saved, err = client.WaitAndDownload(cmd.Context(), uid, target, opts)
						if err != nil {
							return waitFailure(cmd, store, uid, err)
						}
					} else {
						saved, err = client.Download(cmd.Context(), uid, target)
						if err != nil {
							return err
						}
					}
					if _, err := store.MarkDownloaded(cmd.Context(), uid, saved); err != nil {
						logger.Warn("failed to record download", logging.FieldGenerationUID, uid, logging.Error(err))
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Saved model to %s\n", saved)
					return nil
				})
			})
		},
	}
	wait.register(cmd)
	cmd.Flags().BoolVarP(&block, "wait", "w", false, "Wait for the generation to complete first")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default from config)")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses []string
		runID    string
		limit    int
		pending  bool
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List generations recorded in the local ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(store *jobs.Store) error {
				opts := jobs.ListOptions{Statuses: statuses, RunID: runID, Limit: limit}
				if pending {
					opts.Statuses = []string{printpal.StatusPending, printpal.StatusProcessing}
				}
				list, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if jsonOut {
					if list == nil {
						list = []*jobs.Job{}
					}
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Generation", "Input", "Quality", "Format", "Status", "Credits", "Output", "Created"},
					jobRows(list),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&runID, "run", "", "Filter by batch run ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only show generations that have not finished")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	cmd.AddCommand(newJobsRefreshCommand(ctx))
	cmd.AddCommand(newJobsRemoveCommand(ctx))
	return cmd
}

func jobRows(list []*jobs.Job) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		input := job.Source
		if job.InputKind == jobs.InputPrompt {
			input = fmt.Sprintf("%q", job.Source)
		}
		created := job.CreatedAt
		rows = append(rows, []string{
			job.UID,
			truncate(input, 40),
			tierTitle(job.Quality),
			job.Format,
			job.Status,
			strconv.Itoa(job.CreditsUsed),
			truncate(valueOrDash(job.OutputPath), 40),
			formatTime(&created),
		})
	}
	return rows
}

func newJobsRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Poll the service once for every unfinished generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *printpal.Client) error {
				return ctx.withJobs(func(store *jobs.Store) error {
					pending, err := store.Pending(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if len(pending) == 0 {
						fmt.Fprintln(out, "No unfinished generations")
						return nil
					}
					colorize := shouldColorize(out)
					for _, job := range pending {
						status, err := client.GetStatus(cmd.Context(), job.UID)
						if err != nil {
							fmt.Fprintln(out, renderStatusLine(job.UID, statusError, err.Error(), colorize))
							continue
						}
						if _, err := store.UpdateStatus(cmd.Context(), job.UID, status.Status, ""); err != nil {
							return err
						}
						fmt.Fprintln(out, renderStatusLine(job.UID, generationKind(status.Status), status.Status, colorize))
					}
					return nil
				})
			})
		},
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <generation-uid>...",
		Short: "Forget generations in the local ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(store *jobs.Store) error {
				out := cmd.OutOrStdout()
				for _, uid := range args {
					removed, err := store.Remove(cmd.Context(), uid)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed %s\n", uid)
					} else {
						fmt.Fprintf(out, "%s not found\n", uid)
					}
				}
				return nil
			})
		},
	}
}
