package job

import (
	"fmt"
	"strings"

	"ytbatch/internal/progress"
	"ytbatch/internal/services"
)

var invalidURLMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"invalid url",
	"http error 404",
	"404: not found",
	"video unavailable",
	"unable to download webpage",
	"name or service not known",
}

// classifyFailure turns an ERROR message or exit code into a tagged error.
func classifyFailure(message string, exitCode int) error {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)
	for _, marker := range invalidURLMarkers {
		if strings.Contains(lower, marker) {
			return services.Wrap(services.ErrInvalidURL, "yt-dlp", "download", message, nil)
		}
	}
	if message == "" {
		message = fmt.Sprintf("exit status %d", exitCode)
	}
	return services.Wrap(services.ErrNonZeroExit, "yt-dlp", "download", message, nil)
}

// lastError returns the most recent ERROR text seen by the parser.
func lastError(summary progress.Summary) string {
	if n := len(summary.Errors); n > 0 {
		return summary.Errors[n-1]
	}
	for i := len(summary.Items) - 1; i >= 0; i-- {
		if summary.Items[i].Failed() {
			return summary.Items[i].Err
		}
	}
	return ""
}
