// Package notifications publishes job summaries to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can notify unconditionally once a job finishes.
package notifications
