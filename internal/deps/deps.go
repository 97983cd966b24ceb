package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"ytbatch/internal/config"
	"ytbatch/internal/ytdlp"
)

// Requirement defines an external executable ytbatch drives.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements lists the executables cfg depends on. ffprobe is only
// required when verification inspects files.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Tools.YtdlpBinary,
			Description: "Downloads media and lists playlist entries",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.Tools.FFprobeBinary,
			Description: "Inspects downloaded files during verification",
			Optional:    !cfg.Verify.InspectFiles,
		},
	}
}

// CheckAll evaluates Requirements(cfg) plus the ffmpeg yt-dlp will use for
// merging and audio extraction. ffmpeg is required when quality extracts
// audio; callers pass the quality the download will actually use.
func CheckAll(cfg *config.Config, quality string) []Status {
	results := CheckBinaries(Requirements(cfg))
	if cfg == nil {
		return results
	}
	ffmpeg := CheckFFmpegForYtdlp(cfg.Tools.YtdlpBinary)
	ffmpeg.Optional = !ytdlp.Options{Selector: quality}.AudioOnly()
	return append(results, ffmpeg)
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}
