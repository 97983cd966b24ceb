package preflight

import (
	"context"
	"fmt"
	"strings"

	"ytbatch/internal/config"
	"ytbatch/internal/deps"
	"ytbatch/internal/services"
	"ytbatch/internal/ytdlp"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all preflight checks for the configured defaults. tool may
// be nil, in which case the yt-dlp version check is skipped.
func RunAll(ctx context.Context, cfg *config.Config, tool VersionQuerier) []Result {
	if cfg == nil {
		return nil
	}
	return run(ctx, cfg, tool, cfg.Download.Quality, cfg.Paths.DownloadDir)
}

// ForJob checks what one download needs: ffmpeg follows the job's quality and
// the directory check targets dir, falling back to the configured download
// directory.
func ForJob(ctx context.Context, cfg *config.Config, dir string, opts ytdlp.Options) []Result {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(dir) == "" {
		dir = cfg.Paths.DownloadDir
	}
	return run(ctx, cfg, nil, opts.Selector, dir)
}

func run(ctx context.Context, cfg *config.Config, tool VersionQuerier, quality, downloadDir string) []Result {
	var results []Result
	for _, status := range deps.CheckAll(cfg, quality) {
		results = append(results, CheckDependency(status))
	}

	// version only makes sense once the binary resolves
	if tool != nil && len(results) > 0 && results[0].Passed {
		results = append(results, CheckYtdlpVersion(ctx, tool))
	}

	results = append(results, CheckCreatableDirectory("Download directory", downloadDir))
	results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))
	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			out = append(out, result)
		}
	}
	return out
}

// Err summarizes required failures as an environment error, or nil.
func Err(results []Result) error {
	failures := Failures(results)
	if len(failures) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failures))
	for _, failure := range failures {
		parts = append(parts, fmt.Sprintf("%s: %s", failure.Name, failure.Detail))
	}
	marker := services.ErrEnvironment
	if failures[0].Name == "yt-dlp" {
		marker = services.ErrToolUnavailable
	}
	return services.Wrap(marker, "preflight", "check", strings.Join(parts, "; "), nil)
}
