package job_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/job"
	"ytbatch/internal/progress"
	"ytbatch/internal/services"
	"ytbatch/internal/testsupport"
	"ytbatch/internal/verify"
	"ytbatch/internal/ytdlp"
)

func newOrchestrator(t *testing.T, cfg *config.Config, exec *testsupport.StubExecutor, withVerifier bool) *job.Orchestrator {
	t.Helper()
	runner := ytdlp.NewRunner(cfg.Tools.YtdlpBinary, ytdlp.WithExecutor(exec))
	opts := []job.Option{job.WithSuppressPatterns(cfg.Output.SuppressPatterns)}
	if withVerifier {
		prober := ytdlp.NewProber(runner, cfg.ProbeTimeout())
		v := verify.New(prober, cfg.Verify.MaxAttempts, 0, verify.WithSleep(func(context.Context, time.Duration) error { return nil }))
		opts = append(opts, job.WithVerifier(v))
	}
	return job.New(runner, opts...)
}

func urls(n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("https://example.com/watch?v=%d", i))
	}
	return out
}

func listJob(cfg *config.Config, items []string, continueOnError bool) job.DownloadJob {
	return job.DownloadJob{
		Kind: job.KindSingle,
		URLs: items,
		Dir:  cfg.Paths.DownloadDir,
		Options: ytdlp.Options{
			Selector:        "best",
			OutputTemplate:  cfg.Download.OutputTemplate,
			ContinueOnError: continueOnError,
		},
	}
}

func TestRunListStopsAfterFailureWhenContinueOnErrorDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	items := urls(5)
	exec := &testsupport.StubExecutor{ByTarget: map[string]testsupport.Step{
		items[1]: {Lines: []string{"ERROR: Unsupported URL: " + items[1]}, ExitCode: 1},
	}}
	orch := newOrchestrator(t, cfg, exec, false)

	result := orch.Run(context.Background(), listJob(cfg, items, false), job.Reporter{})

	if result.State != job.StateFailed {
		t.Fatalf("state = %s, want failed", result.State)
	}
	if len(result.Succeeded) != 1 || len(result.Failed) != 1 || len(result.Untried) != 3 {
		t.Fatalf("succeeded=%d failed=%d untried=%d", len(result.Succeeded), len(result.Failed), len(result.Untried))
	}
	if !slices.Equal(result.Untried, items[2:]) {
		t.Fatalf("untried = %v", result.Untried)
	}
	if got := len(exec.Calls()); got != 2 {
		t.Fatalf("expected 2 invocations, got %d", got)
	}
	if !errors.Is(result.Failed[0].Err, services.ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL classification, got %v", result.Failed[0].Err)
	}
	if result.Failed[0].ExitCode != 1 || result.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d / %d", result.Failed[0].ExitCode, result.ExitCode)
	}
	if result.OK() {
		t.Fatal("failed job must not be OK")
	}
	if result.JobID == "" {
		t.Fatal("expected a job id")
	}
}

func TestRunListContinuesOnError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	items := urls(5)
	exec := &testsupport.StubExecutor{ByTarget: map[string]testsupport.Step{
		items[1]: {Lines: []string{"ERROR: unable to download video data: HTTP Error 403: Forbidden"}, ExitCode: 1},
	}}
	orch := newOrchestrator(t, cfg, exec, false)

	var snapshots []progress.Snapshot
	var outcomes []job.Outcome
	result := orch.Run(context.Background(), listJob(cfg, items, true), job.Reporter{
		OnProgress: func(s progress.Snapshot) { snapshots = append(snapshots, s) },
		OnItem:     func(o job.Outcome) { outcomes = append(outcomes, o) },
	})

	if result.State != job.StateCompleted {
		t.Fatalf("state = %s, want completed", result.State)
	}
	if len(result.Succeeded) != 4 || len(result.Failed) != 1 || len(result.Untried) != 0 {
		t.Fatalf("succeeded=%d failed=%d untried=%d", len(result.Succeeded), len(result.Failed), len(result.Untried))
	}
	if !errors.Is(result.Failed[0].Err, services.ErrNonZeroExit) || !errors.Is(result.Err, services.ErrNonZeroExit) {
		t.Fatalf("expected ErrNonZeroExit, got item=%v job=%v", result.Failed[0].Err, result.Err)
	}
	if result.OK() {
		t.Fatal("job with failures must not be OK")
	}
	if len(outcomes) != 5 {
		t.Fatalf("expected one OnItem per URL, got %d", len(outcomes))
	}
	if len(snapshots) != 5 {
		t.Fatalf("expected one snapshot per item, got %d", len(snapshots))
	}
	for i, s := range snapshots {
		if s.Current != i+1 || s.Total != 5 || s.Label != items[i] {
			t.Fatalf("snapshot %d = %+v", i, s)
		}
		if s.Percentage != 100*float64(s.Current)/float64(s.Total) {
			t.Fatalf("snapshot %d percentage = %v", i, s.Percentage)
		}
	}
	for _, call := range exec.Calls() {
		if !slices.Contains(call.Args, "--ignore-errors") {
			t.Fatalf("expected --ignore-errors in %v", call.Args)
		}
	}

	succeeded := map[string]bool{}
	for _, o := range result.Succeeded {
		succeeded[o.Item] = true
	}
	for _, o := range result.Failed {
		if succeeded[o.Item] {
			t.Fatalf("%s is both succeeded and failed", o.Item)
		}
	}
}

func TestRunListRejectsInvalidURLWithoutSpawning(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{}
	orch := newOrchestrator(t, cfg, exec, false)

	result := orch.Run(context.Background(), listJob(cfg, []string{"not-a-url", "https://example.com/ok"}, true), job.Reporter{})
	if len(result.Failed) != 1 || !errors.Is(result.Failed[0].Err, services.ErrInvalidURL) {
		t.Fatalf("expected invalid URL failure, got %+v", result.Failed)
	}
	calls := exec.Calls()
	if len(calls) != 1 || calls[0].Target() != "https://example.com/ok" {
		t.Fatalf("expected only the valid URL to be spawned, got %+v", calls)
	}
}

func TestRunListDeduplicatesAndBindsIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{}
	orch := newOrchestrator(t, cfg, exec, false)

	j := listJob(cfg, []string{"https://example.com/a", "https://EXAMPLE.com/a", "https://example.com/b"}, true)
	j.AutoNumber = true
	result := orch.Run(context.Background(), j, job.Reporter{})
	if !result.OK() {
		t.Fatalf("expected OK result, got %+v", result)
	}

	calls := exec.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected duplicates to be dropped, got %d calls", len(calls))
	}
	for i, call := range calls {
		idx := slices.Index(call.Args, "-o")
		if idx < 0 {
			t.Fatalf("missing -o in %v", call.Args)
		}
		want := fmt.Sprintf("%02d - %%(title)s.%%(ext)s", i+1)
		if call.Args[idx+1] != want {
			t.Fatalf("template = %q, want %q", call.Args[idx+1], want)
		}
		if call.Dir != cfg.Paths.DownloadDir {
			t.Fatalf("invocation dir = %q", call.Dir)
		}
	}
}

func TestRunToolUnavailableFailsBeforeSpawn(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMissingYtdlp())
	exec := &testsupport.StubExecutor{}
	orch := newOrchestrator(t, cfg, exec, false)

	result := orch.Run(context.Background(), listJob(cfg, urls(2), true), job.Reporter{})
	if result.State != job.StateFailed || !errors.Is(result.Err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable failure, got state=%s err=%v", result.State, result.Err)
	}
	if len(exec.Calls()) != 0 {
		t.Fatal("nothing may be spawned when the tool is missing")
	}
}

func TestRunDirectoryNotCreatable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	testsupport.WriteFile(t, blocker, 1)
	exec := &testsupport.StubExecutor{}
	orch := newOrchestrator(t, cfg, exec, false)

	j := listJob(cfg, urls(1), true)
	j.Dir = filepath.Join(blocker, "downloads")
	result := orch.Run(context.Background(), j, job.Reporter{})
	if result.State != job.StateFailed || !errors.Is(result.Err, services.ErrEnvironment) {
		t.Fatalf("expected environment failure, got state=%s err=%v", result.State, result.Err)
	}
	if len(exec.Calls()) != 0 {
		t.Fatal("nothing may be spawned when the directory cannot be created")
	}
}

func TestRunRejectsEmptyJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	orch := newOrchestrator(t, cfg, &testsupport.StubExecutor{}, false)
	result := orch.Run(context.Background(), job.DownloadJob{Kind: job.KindPlaylist, Dir: cfg.Paths.DownloadDir}, job.Reporter{})
	if !errors.Is(result.Err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", result.Err)
	}
}

func TestRunCancelledBeforeFirstItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{}
	orch := newOrchestrator(t, cfg, exec, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := urls(3)
	result := orch.Run(ctx, listJob(cfg, items, true), job.Reporter{})
	if result.State != job.StateFailed || !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("expected cancelled failure, got state=%s err=%v", result.State, result.Err)
	}
	if !slices.Equal(result.Untried, items) {
		t.Fatalf("untried = %v", result.Untried)
	}
}

func mediaNames(indexes ...int) []string {
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, fmt.Sprintf("%02d - Entry %d.mp4", idx, idx))
	}
	return names
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestRunPlaylistCompletesAfterOneRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{
		ProbeLines: testsupport.ProbeEntries(10),
		Steps: []testsupport.Step{
			{
				Lines:    testsupport.PlaylistLines(10, seq(1, 10), map[int]string{8: "HTTP Error 403", 9: "HTTP Error 403", 10: "HTTP Error 403"}),
				ExitCode: 1,
				Files:    mediaNames(seq(1, 7)...),
			},
			{
				Lines: testsupport.PlaylistLines(10, seq(1, 10), nil),
				Files: mediaNames(8, 9, 10),
			},
		},
	}
	orch := newOrchestrator(t, cfg, exec, true)

	var snapshots []progress.Snapshot
	result := orch.Run(context.Background(), job.DownloadJob{
		Kind:    job.KindPlaylist,
		Source:  "https://example.com/playlist?list=PL1",
		Dir:     cfg.Paths.DownloadDir,
		Options: ytdlp.Options{Selector: "best", OutputTemplate: cfg.Download.OutputTemplate, ContinueOnError: true},
	}, job.Reporter{OnProgress: func(s progress.Snapshot) { snapshots = append(snapshots, s) }})

	if result.Verification == nil {
		t.Fatal("expected verification report")
	}
	if result.Verification.Status != verify.StatusComplete || result.Verification.Retries != 1 {
		t.Fatalf("verification = %+v", *result.Verification)
	}
	if result.Completeness() != "complete" || !result.OK() {
		t.Fatalf("expected OK complete result, got %+v", result)
	}
	if len(result.Succeeded) != 10 || len(result.Failed) != 0 {
		t.Fatalf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed))
	}

	calls := exec.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected initial pass plus one retry, got %d", len(calls))
	}
	if !slices.Contains(calls[0].Args, "--ignore-errors") {
		t.Fatal("initial pass should honour continue_on_error")
	}
	if slices.Contains(calls[1].Args, "--ignore-errors") {
		t.Fatal("retry passes must run with continue_on_error disabled")
	}
	if len(exec.Probes()) != 1 {
		t.Fatalf("expected one probe, got %d", len(exec.Probes()))
	}
	if len(snapshots) != 10 {
		t.Fatalf("expected the retry pass to add no snapshots behind the first, got %d", len(snapshots))
	}
	requireNonDecreasing(t, snapshots)
}

func requireNonDecreasing(t *testing.T, snapshots []progress.Snapshot) {
	t.Helper()
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i].Current < snapshots[i-1].Current {
			t.Fatalf("current went from %d to %d at snapshot %d", snapshots[i-1].Current, snapshots[i].Current, i)
		}
	}
}

func TestRunPlaylistProgressNeverMovesBackwardAcrossRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{
		ProbeLines: testsupport.ProbeEntries(3),
		Steps: []testsupport.Step{
			{
				Lines:    testsupport.PlaylistLines(3, seq(1, 3), map[int]string{3: "HTTP Error 403"}),
				ExitCode: 1,
				Files:    mediaNames(1, 2),
			},
			{
				Lines: testsupport.PlaylistLines(3, seq(1, 3), nil),
				Files: mediaNames(3),
			},
		},
	}
	orch := newOrchestrator(t, cfg, exec, true)

	var currents []int
	var snapshots []progress.Snapshot
	result := orch.Run(context.Background(), job.DownloadJob{
		Kind:    job.KindPlaylist,
		Source:  "https://example.com/playlist?list=PL4",
		Dir:     cfg.Paths.DownloadDir,
		Options: ytdlp.Options{OutputTemplate: cfg.Download.OutputTemplate, ContinueOnError: true},
	}, job.Reporter{OnProgress: func(s progress.Snapshot) {
		snapshots = append(snapshots, s)
		currents = append(currents, s.Current)
	}})

	if len(exec.Calls()) != 2 || !result.OK() {
		t.Fatalf("expected a successful retry, calls=%d result=%+v", len(exec.Calls()), result)
	}
	requireNonDecreasing(t, snapshots)
	if !slices.Equal(currents, []int{1, 2, 3}) {
		t.Fatalf("unexpected currents %v", currents)
	}
}

func TestRunPlaylistIncompleteAfterRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	failing := testsupport.Step{
		Lines:    testsupport.PlaylistLines(3, seq(1, 3), map[int]string{3: "[youtube] id3: Video unavailable"}),
		ExitCode: 1,
	}
	first := failing
	first.Files = mediaNames(1, 2)
	exec := &testsupport.StubExecutor{
		ProbeLines: testsupport.ProbeEntries(3),
		Steps:      []testsupport.Step{first},
		Default:    failing,
	}
	orch := newOrchestrator(t, cfg, exec, true)

	result := orch.Run(context.Background(), job.DownloadJob{
		Kind:    job.KindPlaylist,
		Source:  "https://example.com/playlist?list=PL2",
		Dir:     cfg.Paths.DownloadDir,
		Options: ytdlp.Options{OutputTemplate: cfg.Download.OutputTemplate, ContinueOnError: true},
	}, job.Reporter{})

	if result.State != job.StateCompleted {
		t.Fatalf("state = %s", result.State)
	}
	report := result.Verification
	if report == nil || report.Status != verify.StatusIncomplete || report.Retries != cfg.Verify.MaxAttempts || report.Missing != 1 {
		t.Fatalf("unexpected verification %+v", report)
	}
	if !errors.Is(result.Err, services.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", result.Err)
	}
	if len(exec.Calls()) != 1+cfg.Verify.MaxAttempts {
		t.Fatalf("expected %d invocations, got %d", 1+cfg.Verify.MaxAttempts, len(exec.Calls()))
	}
	if len(result.Failed) != 1 || !errors.Is(result.Failed[0].Err, services.ErrInvalidURL) || result.Failed[0].Label != "id3" {
		t.Fatalf("unexpected failures %+v", result.Failed)
	}
	if len(result.Succeeded) != 2 {
		t.Fatalf("succeeded = %d", len(result.Succeeded))
	}
}

func TestRunPlaylistProbeFailureIsUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{
		ProbeErr: &ytdlp.ExitError{Code: 1},
		Default:  testsupport.Step{Lines: testsupport.PlaylistLines(2, seq(1, 2), nil), Files: mediaNames(1, 2)},
	}
	orch := newOrchestrator(t, cfg, exec, true)

	result := orch.Run(context.Background(), job.DownloadJob{
		Kind:   job.KindPlaylist,
		Source: "https://example.com/playlist?list=PL3",
		Dir:    cfg.Paths.DownloadDir,
	}, job.Reporter{})
	if result.Completeness() != "unknown" || result.Verification.Retries != 0 {
		t.Fatalf("unexpected verification %+v", result.Verification)
	}
	if !result.OK() {
		t.Fatalf("unverifiable playlist with no failures should be OK: %+v", result)
	}
	if len(exec.Calls()) != 1 {
		t.Fatalf("expected no retries, got %d calls", len(exec.Calls()))
	}
}

func TestRunPlaylistWithoutBoundariesUsesSourceOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	exec := &testsupport.StubExecutor{Default: testsupport.Step{
		Lines: []string{"[youtube] abc: Downloading webpage", "[download] Destination: Single.mp4", "[download] 100% of 1MiB"},
	}}
	orch := newOrchestrator(t, cfg, exec, false)

	result := orch.Run(context.Background(), job.DownloadJob{
		Kind:   job.KindPlaylist,
		Source: "https://example.com/watch?v=abc",
		Dir:    cfg.Paths.DownloadDir,
	}, job.Reporter{})
	if len(result.Succeeded) != 1 || result.Succeeded[0].Label != "Single" {
		t.Fatalf("unexpected outcomes %+v", result.Succeeded)
	}
	if result.Verification != nil {
		t.Fatal("no verifier configured, expected no report")
	}
}

func TestStartDeliversOneResult(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	orch := newOrchestrator(t, cfg, &testsupport.StubExecutor{}, false)

	j := listJob(cfg, urls(2), true)
	ch := orch.Start(context.Background(), j, job.Reporter{})

	result, ok := <-ch
	if !ok {
		t.Fatal("expected a result")
	}
	if !result.OK() || len(result.Succeeded) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, open := <-ch; open {
		t.Fatal("channel should be closed after the result")
	}
	if _, err := os.Stat(cfg.Paths.DownloadDir); err != nil {
		t.Fatalf("download dir not created: %v", err)
	}
}
