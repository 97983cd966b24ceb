package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ytbatch/internal/job"
	"ytbatch/internal/textutil"
	"ytbatch/internal/ytdlp"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var listEntries bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe URL",
		Short: "Count the entries yt-dlp would download for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			url := strings.TrimSpace(args[0])
			if err := job.ValidateURL(url); err != nil {
				return err
			}
			logger, _ := ctx.ensureLogger()
			runner := ctx.newRunner(cfg, logger)
			if err := runner.Available(); err != nil {
				return err
			}

			result, err := ytdlp.NewProber(runner, cfg.ProbeTimeout()).Probe(cmd.Context(), url)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Expected entries: %d\n", len(result.Entries))
			if result.Skipped > 0 {
				fmt.Fprintf(out, "Skipped: %d duplicate or nested entries\n", result.Skipped)
			}
			if listEntries && len(result.Entries) > 0 {
				rows := make([][]string, 0, len(result.Entries))
				for i, entry := range result.Entries {
					title := textutil.NormalizeLabel(entry.Title)
					if title == "" {
						title = entry.URL
					}
					rows = append(rows, []string{strconv.Itoa(i + 1), entry.ID, title})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "ID", "Title"}, rows, []columnAlignment{alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&listEntries, "list", "l", false, "List the entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
