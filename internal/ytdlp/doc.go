// Package ytdlp builds yt-dlp command lines and runs the tool.
//
// BuildArgs and ProbeArgs are pure translations from download options to an
// argument vector; they never fail. Runner executes those vectors through an
// Executor, leasing the download directory for the lifetime of the child
// process so invocations never interleave in one directory. Stdout and stderr
// are merged into one line stream that is delivered to the caller's callback
// on the caller's goroutine, in arrival order.
//
// A non-zero exit is reported as an exit code, not an error: yt-dlp exits 1
// when any playlist entry failed, and the caller decides what that means.
package ytdlp
