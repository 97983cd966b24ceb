// Package ffprobe wraps ffprobe's JSON output for download sanity checks.
//
// Inspector.Check decides whether a finished download is a usable media file:
// it must decode, carry at least one stream of the expected kind, and report a
// positive duration. The completion verifier uses it to keep truncated or
// mislabelled files out of the observed count.
package ffprobe
