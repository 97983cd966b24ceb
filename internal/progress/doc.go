// Package progress turns yt-dlp's streamed text output into structured
// progress.
//
// A Classifier maps one raw line to zero or more tagged Events; the default
// YtdlpClassifier understands the playlist, extractor and download messages
// yt-dlp prints with --newline. Parser owns the per-invocation state: it
// derives Snapshots at item boundaries, forwards raw lines to a log callback
// unless they match the suppression denylist, and records per-item outcomes
// for the Summary consulted after the process exits.
package progress
