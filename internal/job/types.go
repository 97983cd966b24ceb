package job

import (
	"time"

	"ytbatch/internal/progress"
	"ytbatch/internal/verify"
	"ytbatch/internal/ytdlp"
)

// Kind distinguishes explicit URL lists from playlists.
type Kind string

const (
	KindSingle   Kind = "single"
	KindPlaylist Kind = "playlist"
)

// State is the lifecycle position of a job.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// DownloadJob describes one run. Run receives it by value, so later changes by
// the caller do not affect a running job.
type DownloadJob struct {
	Kind       Kind
	Source     string
	URLs       []string
	Dir        string
	Options    ytdlp.Options
	AutoNumber bool
}

// Status is the outcome of one work item.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome records what happened to one URL or playlist entry.
type Outcome struct {
	Item     string
	Index    int
	Label    string
	Status   Status
	Err      error
	ExitCode int
}

// Reporter receives progress while a job runs. Nil callbacks are skipped.
type Reporter struct {
	OnProgress func(progress.Snapshot)
	OnLog      func(line string)
	OnItem     func(Outcome)
}

func (r Reporter) progress(s progress.Snapshot) {
	if r.OnProgress != nil {
		r.OnProgress(s)
	}
}

func (r Reporter) item(o Outcome) {
	if r.OnItem != nil {
		r.OnItem(o)
	}
}

// Result is the value returned for every run. Succeeded and Failed are
// disjoint; Untried lists URLs that were never attempted.
type Result struct {
	JobID        string
	Kind         Kind
	Source       string
	Dir          string
	State        State
	Succeeded    []Outcome
	Failed       []Outcome
	Untried      []string
	ExitCode     int
	Err          error
	Verification *verify.Report
	StartedAt    time.Time
	FinishedAt   time.Time
}

// OK reports whether every item succeeded and, for playlists, verification
// did not find missing entries. An unverifiable playlist still counts as OK.
func (r Result) OK() bool {
	if r.State != StateCompleted || len(r.Failed) > 0 || len(r.Untried) > 0 {
		return false
	}
	return r.Verification == nil || r.Verification.Status != verify.StatusIncomplete
}

// Completeness summarizes verification for display: "complete",
// "incomplete", "unknown", or "" when the job was not verified.
func (r Result) Completeness() string {
	if r.Verification == nil {
		return ""
	}
	return string(r.Verification.Status)
}

// Duration returns the wall time of the run.
func (r Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
