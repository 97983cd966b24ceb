package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ytbatch/internal/config"
	"ytbatch/internal/job"
	"ytbatch/internal/logging"
	"ytbatch/internal/notifications"
	"ytbatch/internal/preflight"
	"ytbatch/internal/progress"
	"ytbatch/internal/verify"
)

type runSettings struct {
	quiet       bool
	verify      bool
	maxAttempts int
	backoff     time.Duration
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// runJob checks the environment, runs j to completion, records it in the
// history, and renders the result. It returns an error unless the run was
// fully successful.
func (c *commandContext) runJob(cmd *cobra.Command, cfg *config.Config, j job.DownloadJob, settings runSettings) error {
	stderr := cmd.ErrOrStderr()
	logger, logErr := c.ensureLogger()
	if logErr != nil {
		fmt.Fprintf(stderr, "warning: file logging disabled: %v\n", logErr)
	}

	if err := preflight.Err(preflight.ForJob(cmd.Context(), cfg, j.Dir, j.Options)); err != nil {
		return err
	}

	runner := c.newRunner(cfg, logger)
	var verifier *verify.Verifier
	if settings.verify {
		verifier = c.newVerifier(cfg, runner, logger, settings.maxAttempts, settings.backoff)
	}
	orchestrator := c.newOrchestrator(cfg, runner, verifier, logger)

	colorize := shouldColorize(stderr)
	reporter := job.Reporter{
		OnProgress: func(s progress.Snapshot) {
			fmt.Fprintln(stderr, renderProgress(s, colorize))
		},
		OnItem: func(o job.Outcome) {
			if o.Status == job.StatusFailed {
				fmt.Fprintln(stderr, renderStatusLine(displayLabel(o), statusError, errorDetail(o.Err), colorize))
			}
		},
	}
	if !settings.quiet {
		reporter.OnLog = func(line string) {
			fmt.Fprintln(stderr, line)
		}
	}

	// reporter callbacks run on the job goroutine; this one only waits
	result := <-orchestrator.Start(cmd.Context(), j, reporter)

	if err := c.record(cmd.Context(), j, result); err != nil {
		logging.WarnWithContext(logger, "run history not updated", "history_write",
			logging.String("job_id", result.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
		)
		fmt.Fprintf(stderr, "warning: run history not updated: %v\n", err)
	}

	if err := notifications.NewService(cfg).NotifyJobFinished(context.WithoutCancel(cmd.Context()), result); err != nil {
		logging.WarnWithContext(logger, "job notification failed", "notification",
			logging.String("job_id", result.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderResult(result, shouldColorize(cmd.OutOrStdout())))
	return resultError(result)
}

func (c *commandContext) record(ctx context.Context, j job.DownloadJob, result job.Result) error {
	store, err := c.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	// record even when the run was cancelled
	return store.Record(context.WithoutCancel(ctx), j, result)
}

func resultError(result job.Result) error {
	if result.OK() {
		return nil
	}
	if result.Err != nil && (errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded)) {
		return result.Err
	}
	summary := fmt.Sprintf("run %s finished with %d failed and %d untried item(s)",
		shortID(result.JobID), len(result.Failed), len(result.Untried))
	if result.Err != nil {
		return fmt.Errorf("%s: %w", summary, result.Err)
	}
	return errors.New(summary)
}
