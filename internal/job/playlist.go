package job

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"ytbatch/internal/logging"
	"ytbatch/internal/naming"
	"ytbatch/internal/progress"
	"ytbatch/internal/services"
	"ytbatch/internal/verify"
	"ytbatch/internal/ytdlp"
)

// runPlaylist hands the playlist to a single invocation and, when a verifier
// is configured, retries until the download directory holds every entry.
func (o *Orchestrator) runPlaylist(ctx context.Context, logger *slog.Logger, job DownloadJob, reporter Reporter, result Result) Result {
	opts := job.Options
	opts.OutputTemplate = naming.Apply(opts.OutputTemplate, job.AutoNumber)

	outcomes := newOutcomeSet()
	gate := &runProgress{emit: reporter.progress}
	code, err := o.playlistPass(ctx, logger, job.Source, job.Dir, opts, reporter, gate, outcomes, "pass 1")
	result.ExitCode = code
	if err != nil {
		result.State = StateFailed
		result.Err = err
		result.Succeeded, result.Failed = outcomes.split()
		return result
	}

	if o.verifier != nil {
		retryOpts := opts
		retryOpts.ContinueOnError = false
		target := verify.Target{URL: job.Source, Dir: job.Dir, AudioOnly: opts.AudioOnly()}
		report := o.verifier.Verify(ctx, target, func(ctx context.Context, attempt int) error {
			retryLogger := logging.WithContext(ctx, o.logger)
			code, err := o.playlistPass(ctx, retryLogger, job.Source, job.Dir, retryOpts, reporter, gate, outcomes, fmt.Sprintf("retry %d", attempt))
			result.ExitCode = code
			return err
		})
		result.Verification = &report
	}

	result.Succeeded, result.Failed = outcomes.split()
	result.State = StateCompleted
	switch {
	case interrupted(ctx, nil):
		result.State = StateFailed
		result.Err = services.Wrap(services.ErrEnvironment, "job", "run", "interrupted", ctx.Err())
	case result.Verification != nil && result.Verification.Status == verify.StatusIncomplete:
		result.Err = result.Verification.Err
	case len(result.Failed) > 0:
		result.Err = services.Wrap(services.ErrNonZeroExit, "job", "run", fmt.Sprintf("%d playlist entries failed", len(result.Failed)), nil)
	}
	return result
}

// playlistPass runs one invocation and folds the parsed entries into
// outcomes. Later passes overwrite earlier outcomes for the same entry.
// Snapshots reach the reporter through gate, which spans every pass.
func (o *Orchestrator) playlistPass(ctx context.Context, logger *slog.Logger, source, dir string, opts ytdlp.Options, reporter Reporter, gate *runProgress, outcomes *outcomeSet, phase string) (int, error) {
	logProgress := progressLogger(logger, phase)
	parser := o.newParser(reporter, func(s progress.Snapshot) {
		gate.forward(s)
		logProgress(s)
	})
	code, err := o.tool.Run(ctx, dir, ytdlp.BuildArgs(source, opts), parser.Feed)
	if err != nil {
		return code, err
	}

	summary := parser.Summary()
	logger.Debug("playlist pass finished",
		logging.String("phase", phase),
		logging.Int("exit_code", code),
		logging.Int("entries", len(summary.Items)),
		logging.Int("recovered_lines", summary.Recovered),
	)

	if len(summary.Items) == 0 {
		// a URL that is not a playlist yields no item boundaries
		outcome := Outcome{Item: source, Index: 1, Label: summary.Label, ExitCode: code, Status: StatusSuccess}
		if code != 0 {
			outcome.Status = StatusFailed
			outcome.Err = classifyFailure(lastError(summary), code)
		}
		outcomes.put(outcome)
		reporter.item(outcome)
		return code, nil
	}

	explained := len(summary.Failures()) > 0
	for _, item := range summary.Items {
		outcome := Outcome{
			Item:     fmt.Sprintf("%s#%d", source, item.Index),
			Index:    item.Index,
			Label:    item.Label,
			ExitCode: code,
			Status:   StatusSuccess,
		}
		switch {
		case item.Failed():
			outcome.Status = StatusFailed
			outcome.Err = classifyFailure(item.Err, code)
		case item.Status == progress.ItemPending && code != 0 && !explained:
			outcome.Status = StatusFailed
			outcome.Err = classifyFailure("", code)
		}
		outcomes.put(outcome)
		reporter.item(outcome)
	}
	return code, nil
}

// runProgress forwards snapshots for a whole run. A retry pass restarts
// numbering at item 1, so snapshots that would move Current backwards, or
// repeat the last one, are dropped.
type runProgress struct {
	emit    func(progress.Snapshot)
	current int
	total   int
}

func (r *runProgress) forward(s progress.Snapshot) {
	if s.Current < r.current || (s.Current == r.current && s.Total == r.total) {
		return
	}
	r.current, r.total = s.Current, s.Total
	r.emit(s)
}

// outcomeSet keeps the latest outcome per playlist index.
type outcomeSet struct {
	byIndex map[int]Outcome
}

func newOutcomeSet() *outcomeSet {
	return &outcomeSet{byIndex: make(map[int]Outcome)}
}

func (s *outcomeSet) put(o Outcome) {
	if prev, ok := s.byIndex[o.Index]; ok && o.Label == "" {
		o.Label = prev.Label
	}
	s.byIndex[o.Index] = o
}

func (s *outcomeSet) split() (succeeded, failed []Outcome) {
	indexes := make([]int, 0, len(s.byIndex))
	for idx := range s.byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		o := s.byIndex[idx]
		if o.Status == StatusSuccess {
			succeeded = append(succeeded, o)
		} else {
			failed = append(failed, o)
		}
	}
	return succeeded, failed
}
