// Package workdir serializes use of a download directory.
//
// yt-dlp resolves relative output templates against its working directory, and
// two concurrent invocations writing into the same directory race on partial
// files and skip-existing checks. A Lease grants exclusive use of one
// directory: an in-process semaphore keyed by the cleaned path guards against
// concurrent jobs in this process, and a flock on a hidden lock file guards
// against other ytbatch processes. Leases are not reentrant; acquiring the
// same directory twice from one job blocks until the context ends.
package workdir
