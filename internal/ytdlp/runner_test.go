package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"ytbatch/internal/services"
	"ytbatch/internal/workdir"
	"ytbatch/internal/ytdlp"
)

type stubExecutor struct {
	lines []string
	err   error
	calls int
	dirs  []string
	args  [][]string
}

func (s *stubExecutor) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	s.calls++
	s.dirs = append(s.dirs, dir)
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		onLine(line)
	}
	return s.err
}

func TestRunReportsExitCodeWithoutError(t *testing.T) {
	exec := &stubExecutor{lines: []string{"a", "b"}, err: &ytdlp.ExitError{Code: 1}}
	runner := ytdlp.NewRunner("yt-dlp", ytdlp.WithExecutor(exec))
	dir := t.TempDir()

	var got []string
	code, err := runner.Run(context.Background(), dir, []string{"--", "u"}, func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("lines = %v", got)
	}
	if exec.dirs[0] != dir {
		t.Fatalf("executor dir = %q, want %q", exec.dirs[0], dir)
	}
}

func TestRunClassifiesSpawnFailure(t *testing.T) {
	exec := &stubExecutor{err: os.ErrNotExist}
	runner := ytdlp.NewRunner("yt-dlp", ytdlp.WithExecutor(exec))
	if _, err := runner.Run(context.Background(), t.TempDir(), nil, nil); !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}

	exec.err = errors.New("pipe exploded")
	if _, err := runner.Run(context.Background(), t.TempDir(), nil, nil); !errors.Is(err, services.ErrEnvironment) {
		t.Fatalf("expected ErrEnvironment, got %v", err)
	}
}

func TestRunRequiresDirectory(t *testing.T) {
	runner := ytdlp.NewRunner("", ytdlp.WithExecutor(&stubExecutor{}))
	if runner.Binary() != ytdlp.DefaultBinary {
		t.Fatalf("Binary() = %q", runner.Binary())
	}
	if _, err := runner.Run(context.Background(), " ", nil, nil); !errors.Is(err, services.ErrEnvironment) {
		t.Fatalf("expected ErrEnvironment, got %v", err)
	}
}

func TestRunReleasesLeaseAfterInvocation(t *testing.T) {
	dir := t.TempDir()
	runner := ytdlp.NewRunner("yt-dlp", ytdlp.WithExecutor(&stubExecutor{}))
	if _, err := runner.Run(context.Background(), dir, nil, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lease, err := workdir.Acquire(context.Background(), dir)
	if err != nil {
		t.Fatalf("lease not released: %v", err)
	}
	lease.Release()
}

func TestAvailableMissingBinary(t *testing.T) {
	runner := ytdlp.NewRunner(filepath.Join(t.TempDir(), "missing-yt-dlp"))
	if err := runner.Available(); !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}

func TestCommandExecutorMergesStreamsAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "fake-yt-dlp")
	script := "#!/bin/sh\n" +
		"pwd\n" +
		"echo \"[download] Downloading item 1 of 2\"\n" +
		"echo \"ERROR: boom\" 1>&2\n" +
		"exit 3\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	runner := ytdlp.NewRunner(bin)
	if err := runner.Available(); err != nil {
		t.Fatalf("Available: %v", err)
	}

	dir := t.TempDir()
	var lines []string
	code, err := runner.Run(context.Background(), dir, []string{"--", "u"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"Downloading item 1 of 2", "ERROR: boom"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in merged output %q", want, joined)
		}
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if !strings.Contains(joined, resolved) && !strings.Contains(joined, dir) {
		t.Fatalf("expected child to run in %q, output %q", dir, joined)
	}
}

func TestCommandExecutorCancelKillsChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub requires a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "slow-yt-dlp")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\necho started\nexec sleep 30\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	runner := ytdlp.NewRunner(bin)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := runner.Run(ctx, t.TempDir(), nil, func(line string) {
		if line == "started" {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
