// Package logs reads the ytbatch log file for the `ytbatch logs` command.
//
// Tail returns the last N lines or everything after a byte offset, and
// Follow keeps polling until the context ends. Both can restrict output to
// lines containing a substring, which is how a single job's lines are
// picked out by ID.
package logs
