// Package preflight provides readiness checks for the executables and
// filesystem paths that ytbatch depends on.
//
// These checks run in two contexts:
//   - The get, playlist and retry commands call RunAll before starting a job
//     and refuse to run when a required check fails.
//   - The CLI "ytbatch doctor" command renders every Result, including
//     optional ones, so users can see what a download would use.
package preflight
