package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ytbatch/internal/logging"
	"ytbatch/internal/media/ffprobe"
	"ytbatch/internal/services"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 3 * time.Second
)

// Status is the terminal verdict of a verification.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
	StatusUnknown    Status = "unknown"
)

// RetryState tracks one verification loop.
type RetryState struct {
	Attempt       int
	MaxAttempts   int
	ExpectedCount int
	ObservedCount int
}

// Missing returns how many expected items have no file yet.
func (s RetryState) Missing() int {
	if s.ObservedCount >= s.ExpectedCount {
		return 0
	}
	return s.ExpectedCount - s.ObservedCount
}

// Report is the outcome of Verify. Retries equals State.Attempt.
type Report struct {
	Status  Status
	State   RetryState
	Retries int
	Missing int
	Err     error
}

// Complete reports whether the observed count reached the expected count.
func (r Report) Complete() bool { return r.Status == StatusComplete }

// Target identifies what is being verified.
type Target struct {
	URL       string
	Dir       string
	AudioOnly bool
}

// PassFunc re-runs a download pass. attempt starts at 1.
type PassFunc func(ctx context.Context, attempt int) error

// Prober reports the number of entries a playlist URL expands to.
type Prober interface {
	ExpectedCount(ctx context.Context, url string) (int, error)
}

// Counter returns the number of finished media files for target.
type Counter func(ctx context.Context, target Target) (int, error)

// Option configures a Verifier.
type Option func(*Verifier)

// WithSleep replaces the backoff sleep (primarily for tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(v *Verifier) {
		if sleep != nil {
			v.sleep = sleep
		}
	}
}

// WithCounter replaces the file counter (primarily for tests).
func WithCounter(counter Counter) Option {
	return func(v *Verifier) {
		if counter != nil {
			v.count = counter
		}
	}
}

// WithInspector requires every counted file to pass an ffprobe check.
func WithInspector(inspector *ffprobe.Inspector) Option {
	return func(v *Verifier) {
		v.inspector = inspector
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Verifier drives the bounded verification and retry loop.
type Verifier struct {
	prober      Prober
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	count       Counter
	inspector   *ffprobe.Inspector
	logger      *slog.Logger
}

// New constructs a verifier. maxAttempts < 0 and backoff < 0 fall back to
// the defaults; maxAttempts == 0 disables retries.
func New(prober Prober, maxAttempts int, backoff time.Duration, opts ...Option) *Verifier {
	if maxAttempts < 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff < 0 {
		backoff = DefaultBackoff
	}
	v := &Verifier{
		prober:      prober,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepContext,
		logger:      logging.NewNop(),
	}
	v.count = v.countFiles
	for _, opt := range opts {
		opt(v)
	}
	v.logger = logging.NewComponentLogger(v.logger, "verify")
	return v
}

// Verify runs the loop for target, calling pass for every retry.
func (v *Verifier) Verify(ctx context.Context, target Target, pass PassFunc) Report {
	logger := logging.WithContext(ctx, v.logger)

	if v.prober == nil {
		return Report{Status: StatusUnknown, Err: services.Wrap(services.ErrConfiguration, "verify", "probe", "no prober configured", nil)}
	}
	expected, err := v.prober.ExpectedCount(ctx, target.URL)
	if err != nil {
		logging.WarnWithContext(logger, "expected count unavailable", "probe_failed",
			logging.String("url", target.URL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "completeness cannot be checked; rerun probe to diagnose"),
		)
		return Report{Status: StatusUnknown, State: RetryState{MaxAttempts: v.maxAttempts}, Err: err}
	}

	state := RetryState{MaxAttempts: v.maxAttempts, ExpectedCount: expected}
	if state.ObservedCount, err = v.count(ctx, target); err != nil {
		return Report{Status: StatusUnknown, State: state, Err: services.Wrap(services.ErrEnvironment, "verify", "count files", target.Dir, err)}
	}
	logger.Info("verification started",
		logging.String(logging.FieldEventType, "verify_start"),
		logging.Int("expected_count", state.ExpectedCount),
		logging.Int("observed_count", state.ObservedCount),
	)

	var lastErr error
	for state.ObservedCount < state.ExpectedCount && state.Attempt < state.MaxAttempts {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		state.Attempt++
		attemptCtx := services.WithAttempt(ctx, state.Attempt)
		logging.WithContext(attemptCtx, v.logger).Info("retrying playlist",
			logging.String(logging.FieldEventType, "verify_retry"),
			logging.Int("missing_count", state.Missing()),
		)
		if err := pass(attemptCtx, state.Attempt); err != nil {
			lastErr = err
			logger.Debug("retry pass returned error", logging.Int(logging.FieldAttempt, state.Attempt), logging.Error(err))
		}
		observed, err := v.count(ctx, target)
		if err != nil {
			lastErr = err
			break
		}
		state.ObservedCount = observed

		if state.ObservedCount < state.ExpectedCount && state.Attempt < state.MaxAttempts {
			if err := v.sleep(ctx, v.backoff); err != nil {
				lastErr = err
				break
			}
		}
	}

	report := Report{State: state, Retries: state.Attempt, Missing: state.Missing()}
	if report.Missing == 0 {
		report.Status = StatusComplete
		logger.Info("playlist complete",
			logging.String(logging.FieldEventType, "verify_complete"),
			logging.Int("observed_count", state.ObservedCount),
			logging.Int("retries", state.Attempt),
		)
		return report
	}

	report.Status = StatusIncomplete
	detail := fmt.Sprintf("%d of %d items missing after %d retries", report.Missing, state.ExpectedCount, state.Attempt)
	report.Err = services.Wrap(services.ErrIncomplete, "verify", "reconcile", detail, lastErr)
	logging.WarnWithContext(logger, "playlist incomplete", "verify_incomplete",
		logging.Int("expected_count", state.ExpectedCount),
		logging.Int("observed_count", state.ObservedCount),
		logging.Int("missing_count", report.Missing),
		logging.String(logging.FieldErrorHint, "rerun the playlist later or inspect the log for per-item errors"),
	)
	return report
}

func (v *Verifier) countFiles(ctx context.Context, target Target) (int, error) {
	files, err := MediaFiles(target.Dir, target.AudioOnly)
	if err != nil || v.inspector == nil {
		return len(files), err
	}
	count := 0
	for _, path := range files {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		if ok, reason := v.inspector.Check(ctx, path, target.AudioOnly); ok {
			count++
		} else {
			v.logger.Debug("ignoring unusable file", logging.String("path", path), logging.String("reason", strings.TrimSpace(reason)))
		}
	}
	return count, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
