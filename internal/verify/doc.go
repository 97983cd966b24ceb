// Package verify reconciles a playlist download against the playlist itself.
//
// Verifier probes the expected entry count, counts media files in the download
// directory, and re-runs download passes until the counts match or the retry
// budget is spent. The loop is a single bounded iteration over RetryState; it
// always returns a Report and never panics or raises for expected outcomes.
//
// Retries rely on yt-dlp skipping files that already exist on disk. If the
// tool re-downloads instead, the observed count still converges because
// counting is by file, not by download event.
package verify
