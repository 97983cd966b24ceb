package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ytbatch/internal/ytdlp"
)

// Step scripts one yt-dlp invocation.
type Step struct {
	Lines    []string
	ExitCode int
	Err      error
	// Files are created in the invocation directory before lines are emitted.
	Files []string
}

// Call records one invocation.
type Call struct {
	Dir    string
	Binary string
	Args   []string
}

// Target returns the final argument, the URL yt-dlp was asked to fetch.
func (c Call) Target() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[len(c.Args)-1]
}

// StubExecutor replays scripted steps in order, then Default for any further
// calls. Probe invocations are answered from ProbeLines instead.
type StubExecutor struct {
	mu         sync.Mutex
	Steps      []Step
	Default    Step
	ProbeLines []string
	ProbeErr   error
	// ByTarget, when set, selects the step for a download by its URL.
	ByTarget map[string]Step
	calls    []Call
	probes   []Call
	next     int
}

var _ ytdlp.Executor = (*StubExecutor)(nil)

// Run implements ytdlp.Executor.
func (s *StubExecutor) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	call := Call{Dir: dir, Binary: binary, Args: append([]string(nil), args...)}

	s.mu.Lock()
	if len(args) > 0 && args[0] == "--flat-playlist" {
		s.probes = append(s.probes, call)
		lines, err := s.ProbeLines, s.ProbeErr
		s.mu.Unlock()
		for _, line := range lines {
			onLine(line)
		}
		return err
	}
	s.calls = append(s.calls, call)
	step, ok := s.ByTarget[call.Target()]
	if !ok {
		step = s.Default
		if s.next < len(s.Steps) {
			step = s.Steps[s.next]
		}
	}
	s.next++
	s.mu.Unlock()

	for _, name := range step.Files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			return err
		}
	}
	for _, line := range step.Lines {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onLine(line)
	}
	if step.Err != nil {
		return step.Err
	}
	if step.ExitCode != 0 {
		return &ytdlp.ExitError{Code: step.ExitCode}
	}
	return nil
}

// Calls returns the recorded download invocations.
func (s *StubExecutor) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Probes returns the recorded probe invocations.
func (s *StubExecutor) Probes() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.probes...)
}

// ProbeEntries builds flat-playlist JSON lines for n entries.
func ProbeEntries(n int) []string {
	lines := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		lines = append(lines, fmt.Sprintf(`{"_type":"url","id":"id%d","url":"https://example.com/watch?v=id%d","title":"Entry %d"}`, i, i, i))
	}
	return lines
}

// PlaylistLines builds yt-dlp output for a playlist pass over the given
// indexes out of total. Indexes listed in failed end with an ERROR line.
func PlaylistLines(total int, indexes []int, failed map[int]string) []string {
	lines := []string{fmt.Sprintf("[youtube:tab] Playlist Test: Downloading %d items of %d", total, total)}
	for _, idx := range indexes {
		lines = append(lines,
			fmt.Sprintf("[download] Downloading item %d of %d", idx, total),
			fmt.Sprintf("[youtube] id%d: Downloading webpage", idx),
		)
		if msg, ok := failed[idx]; ok {
			lines = append(lines, "ERROR: "+msg)
			continue
		}
		lines = append(lines,
			fmt.Sprintf("[download] Destination: %02d - Entry %d.mp4", idx, idx),
			"[download] 100% of 1.00MiB in 00:00:01",
		)
	}
	return lines
}
