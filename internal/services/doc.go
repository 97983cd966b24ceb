// Package services defines shared utilities consumed by the download engine
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers and retry attempts for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is instead of matching strings.
//
// Use these helpers when wiring new engine code so failure reporting stays
// uniform between the orchestrator, the verifier and the command layer.
package services
