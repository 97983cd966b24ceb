package verify

import (
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".webm": {}, ".mov": {}, ".avi": {},
	".flv": {}, ".m4v": {}, ".3gp": {}, ".ts": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".aac": {}, ".opus": {}, ".ogg": {},
	".oga": {}, ".flac": {}, ".wav": {}, ".wma": {}, ".aiff": {}, ".mka": {},
}

var partialExtensions = map[string]struct{}{
	".part": {}, ".ytdl": {}, ".temp": {}, ".tmp": {},
}

// per-format streams written before yt-dlp merges them, e.g. "clip.f137.mp4"
var formatFragment = regexp.MustCompile(`\.f\d+\.[A-Za-z0-9]+$`)

// IsMedia reports whether name is a finished media file of the requested kind.
func IsMedia(name string, audioOnly bool) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	if strings.Contains(lower, ".part-frag") || strings.Contains(lower, ".temp.") || formatFragment.MatchString(lower) {
		return false
	}
	ext := filepath.Ext(lower)
	if _, partial := partialExtensions[ext]; partial {
		return false
	}
	set := videoExtensions
	if audioOnly {
		set = audioExtensions
	}
	_, ok := set[ext]
	return ok
}

// MediaFiles lists finished media files under dir, recursively and sorted.
// A missing directory yields no files.
func MediaFiles(dir string, audioOnly bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsMedia(d.Name(), audioOnly) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CountMedia returns len(MediaFiles(dir, audioOnly)).
func CountMedia(dir string, audioOnly bool) (int, error) {
	files, err := MediaFiles(dir, audioOnly)
	return len(files), err
}
