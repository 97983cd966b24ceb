package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ytbatch/internal/deps"
)

// VersionQuerier runs a tool with arguments and streams its output lines.
// *ytdlp.Runner satisfies it through Query.
type VersionQuerier interface {
	Query(ctx context.Context, args []string, onLine func(string)) (int, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory or
// can be created because its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	path = filepath.Clean(strings.TrimSpace(path))
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		info, err := os.Stat(parent)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, parent)}
			}
			if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
		}
		next := filepath.Dir(parent)
		if next == parent {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", path)}
		}
		parent = next
	}
}

// CheckDependency converts a dependency status into a check result.
func CheckDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Optional: status.Optional, Passed: status.Available}
	switch {
	case status.Available:
		result.Detail = status.Command
	case status.Detail != "":
		result.Detail = status.Detail
	default:
		result.Detail = "not available"
	}
	if !status.Available && status.Optional && status.Description != "" {
		result.Detail += " (optional: " + strings.ToLower(status.Description[:1]) + status.Description[1:] + ")"
	}
	return result
}

// CheckYtdlpVersion asks yt-dlp for its version. It uses a 10-second timeout.
func CheckYtdlpVersion(ctx context.Context, tool VersionQuerier) Result {
	const name = "yt-dlp version"
	if tool == nil {
		return Result{Name: name, Detail: "no runner configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var version string
	code, err := tool.Query(checkCtx, []string{"--version"}, func(line string) {
		if version == "" {
			version = strings.TrimSpace(line)
		}
	})
	switch {
	case err != nil:
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Name: name, Detail: "timed out"}
		}
		return Result{Name: name, Detail: err.Error()}
	case code != 0:
		return Result{Name: name, Detail: fmt.Sprintf("exit status %d", code)}
	case version == "":
		return Result{Name: name, Detail: "no version reported"}
	}
	return Result{Name: name, Passed: true, Detail: version}
}
