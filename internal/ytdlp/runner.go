package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"ytbatch/internal/logging"
	"ytbatch/internal/services"
	"ytbatch/internal/workdir"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "yt-dlp"

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger attaches a logger for invocation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner wraps yt-dlp CLI interactions.
type Runner struct {
	binary string
	exec   Executor
	logger *slog.Logger
}

// NewRunner constructs a runner for binary.
func NewRunner(binary string, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	r := &Runner{
		binary: binary,
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "ytdlp")
	return r
}

// Binary returns the configured executable.
func (r *Runner) Binary() string {
	return r.binary
}

// Available reports whether the binary resolves to an executable.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return services.Wrap(services.ErrToolUnavailable, "ytdlp", "lookup", fmt.Sprintf("binary %q not found", r.binary), err)
	}
	return nil
}

// Run executes yt-dlp with args inside dir while holding the directory lease.
// It returns the exit code when the process ran; err is reserved for spawn,
// read and lease failures.
func (r *Runner) Run(ctx context.Context, dir string, args []string, onLine func(string)) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return -1, services.Wrap(services.ErrEnvironment, "ytdlp", "run", "download directory required", nil)
	}
	lease, err := workdir.Acquire(ctx, dir)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}
		return -1, services.Wrap(services.ErrEnvironment, "ytdlp", "lease directory", dir, err)
	}
	defer func() {
		if err := lease.Release(); err != nil {
			r.logger.Warn("release directory lease failed",
				logging.String("dir", lease.Dir()),
				logging.Error(err),
				logging.String(logging.FieldEventType, "lease_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the stale lock file if no other ytbatch is running"),
			)
		}
	}()
	return r.invoke(ctx, lease.Dir(), args, onLine)
}

// Query executes yt-dlp without a directory lease. It is meant for read-only
// invocations such as playlist probes.
func (r *Runner) Query(ctx context.Context, args []string, onLine func(string)) (int, error) {
	return r.invoke(ctx, "", args, onLine)
}

func (r *Runner) invoke(ctx context.Context, dir string, args []string, onLine func(string)) (int, error) {
	started := time.Now()
	r.logger.Debug("launching yt-dlp",
		logging.String("binary", r.binary),
		logging.String("dir", dir),
		logging.String("args", strings.Join(args, " ")),
	)

	err := r.exec.Run(ctx, dir, r.binary, args, onLine)

	var exitErr *ExitError
	switch {
	case err == nil:
		r.logger.Debug("yt-dlp finished", logging.Int("exit_code", 0), logging.Duration("elapsed", time.Since(started)))
		return 0, nil
	case errors.As(err, &exitErr):
		r.logger.Debug("yt-dlp finished", logging.Int("exit_code", exitErr.Code), logging.Duration("elapsed", time.Since(started)))
		return exitErr.Code, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return -1, err
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return -1, services.Wrap(services.ErrToolUnavailable, "ytdlp", "start", r.binary, err)
	default:
		return -1, services.Wrap(services.ErrEnvironment, "ytdlp", "run", r.binary, err)
	}
}
