package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"ytbatch/internal/logging"
	"ytbatch/internal/progress"
	"ytbatch/internal/services"
	"ytbatch/internal/verify"
)

// Tool runs yt-dlp. *ytdlp.Runner satisfies it.
type Tool interface {
	Available() error
	Run(ctx context.Context, dir string, args []string, onLine func(string)) (int, error)
}

// Verifier reconciles playlist downloads. *verify.Verifier satisfies it.
type Verifier interface {
	Verify(ctx context.Context, target verify.Target, pass verify.PassFunc) verify.Report
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithVerifier enables the playlist verification loop.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithSuppressPatterns sets substrings that keep lines out of Reporter.OnLog.
func WithSuppressPatterns(patterns []string) Option {
	return func(o *Orchestrator) {
		o.suppress = append([]string(nil), patterns...)
	}
}

// WithClassifier replaces the output classifier.
func WithClassifier(c progress.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator drives download jobs one tool invocation at a time.
type Orchestrator struct {
	tool       Tool
	verifier   Verifier
	suppress   []string
	classifier progress.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs an orchestrator around tool.
func New(tool Tool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tool:       tool,
		classifier: progress.YtdlpClassifier{},
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o
}

// Start runs job on a new goroutine. The channel yields exactly one Result
// and is then closed.
func (o *Orchestrator) Start(ctx context.Context, job DownloadJob, reporter Reporter) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- o.Run(ctx, job, reporter)
	}()
	return ch
}

// Run executes job and returns its Result. It never panics on tool output
// and returns per-item failures inside the Result.
func (o *Orchestrator) Run(ctx context.Context, job DownloadJob, reporter Reporter) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	job = cloneJob(job)
	result := Result{
		JobID:     uuid.NewString(),
		Kind:      job.Kind,
		Source:    strings.TrimSpace(job.Source),
		Dir:       job.Dir,
		State:     StateIdle,
		StartedAt: o.now(),
	}
	ctx = services.WithJobID(ctx, result.JobID)
	ctx = services.WithJobKind(ctx, string(job.Kind))
	logger := logging.WithContext(ctx, o.logger)

	if err := o.checkEnvironment(job); err != nil {
		return o.fail(logger, result, err)
	}

	result.State = StateRunning
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("dir", job.Dir),
		logging.String("quality", job.Options.Selector),
		logging.Bool("auto_number", job.AutoNumber),
		logging.Bool("continue_on_error", job.Options.ContinueOnError),
	)

	switch job.Kind {
	case KindPlaylist:
		result = o.runPlaylist(ctx, logger, job, reporter, result)
	default:
		result = o.runList(ctx, logger, job, reporter, result)
	}

	result.FinishedAt = o.now()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_finish"),
		logging.String("state", string(result.State)),
		logging.Int("succeeded", len(result.Succeeded)),
		logging.Int("failed", len(result.Failed)),
		logging.Int("untried", len(result.Untried)),
		logging.Duration("elapsed", result.Duration()),
	}
	if c := result.Completeness(); c != "" {
		attrs = append(attrs, logging.String("completeness", c))
	}
	if result.OK() {
		logger.Info("job finished", logging.Args(attrs...)...)
	} else {
		if result.Err != nil {
			attrs = append(attrs, logging.Error(result.Err))
		}
		logging.WarnWithContext(logger, "job finished with problems", "job_finish", attrs...)
	}
	return result
}

func (o *Orchestrator) checkEnvironment(job DownloadJob) error {
	if o.tool == nil {
		return services.Wrap(services.ErrConfiguration, "job", "check environment", "no tool configured", nil)
	}
	switch job.Kind {
	case KindSingle:
		if len(job.URLs) == 0 && strings.TrimSpace(job.Source) == "" {
			return services.Wrap(services.ErrConfiguration, "job", "check environment", "no URLs to download", nil)
		}
	case KindPlaylist:
		if strings.TrimSpace(job.Source) == "" {
			return services.Wrap(services.ErrConfiguration, "job", "check environment", "playlist URL required", nil)
		}
	default:
		return services.Wrap(services.ErrConfiguration, "job", "check environment", fmt.Sprintf("unknown job kind %q", job.Kind), nil)
	}
	if strings.TrimSpace(job.Dir) == "" {
		return services.Wrap(services.ErrConfiguration, "job", "check environment", "download directory required", nil)
	}
	if err := o.tool.Available(); err != nil {
		return err
	}
	if err := os.MkdirAll(job.Dir, 0o755); err != nil {
		return services.Wrap(services.ErrEnvironment, "job", "create download directory", job.Dir, err)
	}
	return nil
}

func (o *Orchestrator) fail(logger *slog.Logger, result Result, err error) Result {
	result.State = StateFailed
	result.Err = err
	result.FinishedAt = o.now()
	logger.Error("job could not start",
		logging.String(logging.FieldEventType, "job_rejected"),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
	)
	return result
}

func (o *Orchestrator) newParser(reporter Reporter, onProgress func(progress.Snapshot)) *progress.Parser {
	return progress.NewParser(progress.Options{
		Classifier: o.classifier,
		Suppress:   o.suppress,
		OnProgress: onProgress,
		OnLog:      reporter.OnLog,
	})
}

// progressLogger samples snapshots into the log every 10% per phase.
func progressLogger(logger *slog.Logger, phase string) func(progress.Snapshot) {
	sampler := logging.NewProgressSampler(10)
	return func(s progress.Snapshot) {
		if !sampler.ShouldLog(s.Percentage, phase) {
			return
		}
		logger.Info("download progress",
			logging.String(logging.FieldEventType, logging.EventProgress),
			logging.String("phase", phase),
			logging.Int("progress_current", s.Current),
			logging.Int("progress_total", s.Total),
			logging.String("progress_percent", fmt.Sprintf("%.0f%%", s.Percentage)),
			logging.String("label", s.Label),
		)
	}
}

func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func cloneJob(job DownloadJob) DownloadJob {
	job.URLs = append([]string(nil), job.URLs...)
	job.Source = strings.TrimSpace(job.Source)
	job.Dir = strings.TrimSpace(job.Dir)
	return job
}
