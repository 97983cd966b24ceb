// Package config loads, normalizes, and validates ytbatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// YTBATCH_DOWNLOAD_DIR. The Config type centralizes every knob the engine and
// CLI need so download, state, and log directories plus tool locations are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
