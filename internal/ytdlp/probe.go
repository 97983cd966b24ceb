package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytbatch/internal/services"
)

// Entry is one flat-playlist record reported by a probe.
type Entry struct {
	Type  string `json:"_type"`
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ProbeResult lists the entries yt-dlp would download for a URL.
type ProbeResult struct {
	URL      string  `json:"url"`
	Entries  []Entry `json:"entries"`
	ExitCode int     `json:"exit_code"`
	Skipped  int     `json:"skipped"`
}

// Prober asks yt-dlp how many items a URL expands to.
type Prober struct {
	runner  *Runner
	timeout time.Duration
}

// NewProber constructs a prober; timeout <= 0 disables the deadline.
func NewProber(runner *Runner, timeout time.Duration) *Prober {
	return &Prober{runner: runner, timeout: timeout}
}

// ExpectedCount returns the number of unique entries behind url.
func (p *Prober) ExpectedCount(ctx context.Context, url string) (int, error) {
	result, err := p.Probe(ctx, url)
	if err != nil {
		return 0, err
	}
	return len(result.Entries), nil
}

// Probe runs a flat-playlist listing. Duplicate entries and nested playlists
// are dropped; lines that are not JSON objects are ignored.
func (p *Prober) Probe(ctx context.Context, url string) (ProbeResult, error) {
	result := ProbeResult{URL: strings.TrimSpace(url)}
	if p == nil || p.runner == nil {
		return result, services.Wrap(services.ErrConfiguration, "ytdlp", "probe", "runner not configured", nil)
	}
	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	seen := make(map[string]struct{})
	code, err := p.runner.Query(probeCtx, ProbeArgs(result.URL), func(line string) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			return
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			result.Skipped++
			return
		}
		if strings.EqualFold(entry.Type, "playlist") {
			result.Skipped++
			return
		}
		key := entry.ID
		if key == "" {
			key = entry.URL
		}
		if key != "" {
			if _, dup := seen[key]; dup {
				result.Skipped++
				return
			}
			seen[key] = struct{}{}
		}
		result.Entries = append(result.Entries, entry)
	})
	result.ExitCode = code
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return result, services.Wrap(services.ErrTimeout, "ytdlp", "probe", fmt.Sprintf("no answer within %s", p.timeout), err)
		}
		return result, err
	}
	if len(result.Entries) == 0 {
		if code != 0 {
			return result, services.Wrap(services.ErrNonZeroExit, "ytdlp", "probe", fmt.Sprintf("exit status %d", code), nil)
		}
		return result, services.Wrap(services.ErrInvalidURL, "ytdlp", "probe", "no entries found", nil)
	}
	return result, nil
}
