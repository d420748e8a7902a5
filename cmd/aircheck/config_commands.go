package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aircheck/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
	}
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigInitCommand(ctx))
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:    %s\n", ctx.configPath)
			fmt.Fprintf(out, "recordings dir: %s\n", cfg.Paths.RecordingsDir)
			fmt.Fprintf(out, "staging dir:    %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "extra local:    %s\n", orDash(cfg.Paths.ExtraLocalDir))
			fmt.Fprintf(out, "log dir:        %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "database:       %s\n", cfg.DatabasePath())
			fmt.Fprintf(out, "remote:         %s\n", orDash(cfg.Remote.URL))
			fmt.Fprintf(out, "retry backoff:  %ds\n", cfg.Capture.RetryBackoffSeconds)
			fmt.Fprintf(out, "scheduler tick: %ds\n", cfg.Scheduler.TickSeconds)
			pushover := "not configured"
			if cfg.Notifications.PushoverToken != "" {
				pushover = "configured"
			}
			fmt.Fprintf(out, "pushover:       %s\n", pushover)
			return nil
		},
	}
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = *ctx.configFlag
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if _, err := os.Stat(path); err == nil && !forceFlag {
				return fmt.Errorf("config file %s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sample configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config file")
	return cmd
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
