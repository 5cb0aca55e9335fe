package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, local paths and API access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var api preflight.API
			if cfg.RequireAPIKey() == nil {
				client, err := ctx.newClient(cmd)
				if err != nil {
					return err
				}
				defer client.Close()
				api = client
			}
			results := preflight.RunAll(cmd.Context(), cfg, ctx.configPath, ctx.configExists, api)

			if jsonOut {
				views := make([]checkView, 0, len(results))
				for _, r := range results {
					views = append(views, checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, line := range checkLines(results, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
			}
			if !preflight.AllPassed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// checkLines renders a summary line followed by one line per check.
func checkLines(results []preflight.Result, colorize bool) []string {
	lines := renderSectionHeader("printpal "+printpal.Version, colorize)

	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		lines = append(lines, renderStatusLine("Summary", statusOK, fmt.Sprintf("%d checks passed", len(results)), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusError, "failed: "+strings.Join(failed, ", "), colorize))
	}
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
