package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytbatch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the ytbatch log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return fmt.Errorf("--lines must be zero or positive")
			}

			opts := logs.Options{Offset: -1, Limit: lines, Match: strings.TrimSpace(jobID)}
			out := cmd.OutOrStdout()
			if follow {
				return logs.Follow(cmd.Context(), cfg.LogPath(), opts, func(line string) {
					fmt.Fprintln(out, line)
				})
			}

			result, err := logs.Tail(cmd.Context(), cfg.LogPath(), opts)
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines mentioning this job ID (or prefix)")
	return cmd
}
