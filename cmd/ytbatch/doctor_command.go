package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ytbatch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools and directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, _ := ctx.ensureLogger()
			runner := ctx.newRunner(cfg, logger)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			source := ctx.configFile
			if !ctx.configExists {
				source += " (not found, using defaults)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, source, colorize))
			fmt.Fprintln(out, renderStatusLine("History", statusInfo, cfg.HistoryPath(), colorize))
			fmt.Fprintln(out, renderStatusLine("Log file", statusInfo, cfg.LogPath(), colorize))
			notify := "disabled"
			if cfg.Notifications.NtfyTopic != "" {
				notify = cfg.Notifications.NtfyTopic
			}
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, notify, colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg, runner)
			for _, result := range results {
				fmt.Fprintln(out, renderStatusLine(result.Name, checkStatus(result), result.Detail, colorize))
			}

			if failures := preflight.Failures(results); len(failures) > 0 {
				return errors.New(pluralize(len(failures), "required check failed", "required checks failed"))
			}
			return nil
		},
	}
}

func checkStatus(result preflight.Result) statusKind {
	switch {
	case result.Passed:
		return statusOK
	case result.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
