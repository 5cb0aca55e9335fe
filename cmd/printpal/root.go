package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "printpal",
		Short:         "Generate 3D models from images and text with PrintPal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	for _, cmd := range newAccountCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newTextCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
