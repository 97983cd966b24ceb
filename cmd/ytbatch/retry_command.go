package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytbatch/internal/job"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "retry ID",
		Short: "Rerun the failed and untried items of a recorded run",
		Long: "Rerun a recorded run. URL lists keep only the items that did not succeed;\n" +
			"playlists are downloaded again and yt-dlp skips entries already on disk.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			run, err := store.Get(cmd.Context(), args[0])
			_ = store.Close()
			if err != nil {
				return err
			}

			retry, ok := run.RetryJob()
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to retry for run %s\n", shortID(run.ID))
				return nil
			}
			settings := runSettings{quiet: quiet}
			if retry.Kind == job.KindPlaylist {
				settings.verify = true
				settings.maxAttempts = cfg.Verify.MaxAttempts
				settings.backoff = cfg.RetryBackoff()
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Retrying %d item(s) from run %s\n", len(retry.URLs), shortID(run.ID))
			}
			return ctx.runJob(cmd, cfg, retry, settings)
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not forward yt-dlp output")
	return cmd
}
