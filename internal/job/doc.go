// Package job orchestrates download jobs.
//
// A DownloadJob is either an explicit list of URLs, downloaded one yt-dlp
// invocation at a time in insertion order, or a playlist URL handed to a single
// invocation that expands it internally. Orchestrator.Run drives the job on the
// calling goroutine and returns a Result value; Start runs it on a background
// goroutine and delivers the Result over a channel. Reporter callbacks are
// invoked synchronously from whichever goroutine runs the job.
//
// Only environment problems (missing tool, uncreatable directory, unusable
// job description) fail a job before anything is spawned. Per-item failures
// are recorded in the Result and never returned as errors.
package job
