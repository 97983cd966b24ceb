// Package main hosts the ytbatch CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into download jobs
// for the orchestrator, playlist probes, run history queries, and
// configuration scaffolding. It centralizes configuration resolution, logger
// construction, and yt-dlp runner wiring so subcommands only translate flags
// into a job and render the result.
//
// Keep this package lean: add behaviour to the internal packages first, then
// surface it here through dedicated commands or flags.
package main
