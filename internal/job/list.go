package job

import (
	"context"
	"log/slog"

	"ytbatch/internal/logging"
	"ytbatch/internal/naming"
	"ytbatch/internal/progress"
	"ytbatch/internal/services"
	"ytbatch/internal/ytdlp"
)

// runList downloads each URL with its own invocation, strictly in order.
func (o *Orchestrator) runList(ctx context.Context, logger *slog.Logger, job DownloadJob, reporter Reporter, result Result) Result {
	urls := job.URLs
	if len(urls) == 0 {
		urls = []string{job.Source}
	}
	items := NewWorkSet(urls...).Items()
	total := len(items)
	template := naming.Apply(job.Options.OutputTemplate, job.AutoNumber)
	width := naming.Width(total)
	onProgress := progressLogger(logger, "list")

	result.State = StateCompleted
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			result.Untried = append(result.Untried, items[i:]...)
			result.State = StateFailed
			result.Err = services.Wrap(services.ErrEnvironment, "job", "run", "interrupted", err)
			break
		}

		snapshot := progress.NewSnapshot(i+1, total, item)
		reporter.progress(snapshot)
		onProgress(snapshot)

		outcome := o.runListItem(ctx, job, reporter, item, i+1, naming.BindIndex(template, i+1, width))
		if outcome.Status == "" {
			// interrupted mid-invocation; the item was not finished
			result.Untried = append(result.Untried, items[i:]...)
			result.State = StateFailed
			result.Err = services.Wrap(services.ErrEnvironment, "job", "run", "interrupted", outcome.Err)
			break
		}
		reporter.item(outcome)

		if outcome.Status == StatusSuccess {
			result.Succeeded = append(result.Succeeded, outcome)
			continue
		}
		result.Failed = append(result.Failed, outcome)
		result.ExitCode = outcome.ExitCode
		logging.WarnWithContext(logger, "item failed", "item_failed",
			logging.String("url", item),
			logging.Int("exit_code", outcome.ExitCode),
			logging.String("error_kind", services.Kind(outcome.Err)),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "check the URL or rerun with ytbatch retry"),
		)
		if !job.Options.ContinueOnError {
			result.Untried = append(result.Untried, items[i+1:]...)
			result.State = StateFailed
			result.Err = outcome.Err
			break
		}
	}
	if result.State == StateCompleted && len(result.Failed) > 0 {
		result.Err = services.Wrap(services.ErrNonZeroExit, "job", "run", "one or more items failed", nil)
	}
	return result
}

// runListItem returns an Outcome with empty Status when ctx ended mid-run.
func (o *Orchestrator) runListItem(ctx context.Context, job DownloadJob, reporter Reporter, item string, index int, template string) Outcome {
	outcome := Outcome{Item: item, Index: index, Label: item}
	if err := ValidateURL(item); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.ExitCode = -1
		return outcome
	}

	opts := job.Options
	opts.OutputTemplate = template
	parser := o.newParser(reporter, nil)
	code, err := o.tool.Run(ctx, job.Dir, ytdlp.BuildArgs(item, opts), parser.Feed)
	summary := parser.Summary()
	if summary.Label != "" {
		outcome.Label = summary.Label
	}
	outcome.ExitCode = code
	switch {
	case err != nil && interrupted(ctx, err):
		outcome.Err = err
		return outcome
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = err
	case code == 0:
		outcome.Status = StatusSuccess
	default:
		outcome.Status = StatusFailed
		outcome.Err = classifyFailure(lastError(summary), code)
	}
	return outcome
}
