package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/printpal-io/printpal-go"
	"github.com/printpal-io/printpal-go/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if err := config.CreateSample(target, overwrite); err != nil {
				if !overwrite {
					return fmt.Errorf("%w (use --force to replace it)", err)
				}
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Edit the file to set api_key (or export %s) before generating.\n", printpal.APIKeyEnv)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (API key redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			if ctx.configExists {
				fmt.Fprintf(out, "# source: %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "# source: defaults and environment")
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the client version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "printpal %s\n", printpal.Version)
			return nil
		},
	}
}
