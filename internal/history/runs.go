package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ytbatch/internal/job"
	"ytbatch/internal/services"
	"ytbatch/internal/ytdlp"
)

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when an ID prefix matches more than one run.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// ItemStatus is the stored outcome of one work item.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
	ItemUntried ItemStatus = "untried"
)

// Item is one stored work item.
type Item struct {
	Position     int
	Item         string
	Label        string
	Status       ItemStatus
	ExitCode     int
	ErrorKind    string
	ErrorMessage string
}

// Run is one stored job result.
type Run struct {
	ID            string
	Kind          job.Kind
	Source        string
	Dir           string
	State         job.State
	Completeness  string
	ExpectedCount int
	ObservedCount int
	Retries       int
	ExitCode      int
	ErrorKind     string
	ErrorMessage  string
	AutoNumber    bool
	Options       ytdlp.Options
	StartedAt     time.Time
	FinishedAt    time.Time
	// Items is populated by Get only.
	Items []Item

	succeeded int
	failed    int
	untried   int
}

// Counts returns the number of succeeded, failed and untried items.
func (r Run) Counts() (succeeded, failed, untried int) {
	if r.Items == nil {
		return r.succeeded, r.failed, r.untried
	}
	for _, item := range r.Items {
		switch item.Status {
		case ItemSuccess:
			succeeded++
		case ItemFailed:
			failed++
		case ItemUntried:
			untried++
		}
	}
	return succeeded, failed, untried
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// URLs returns every item of a list run in its original order.
func (r Run) URLs() []string {
	urls := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		urls = append(urls, item.Item)
	}
	return urls
}

// Succeeded returns the items that finished successfully.
func (r Run) Succeeded() []string {
	var out []string
	for _, item := range r.Items {
		if item.Status == ItemSuccess {
			out = append(out, item.Item)
		}
	}
	return out
}

// RetryJob rebuilds a job that reruns what the stored run did not finish.
// List runs keep only failed and untried URLs. Playlist runs rerun the whole
// playlist since yt-dlp skips entries already on disk. ok is false when there
// is nothing left to retry.
func (r Run) RetryJob() (retry job.DownloadJob, ok bool) {
	retry = job.DownloadJob{
		Kind:       r.Kind,
		Source:     r.Source,
		Dir:        r.Dir,
		Options:    r.Options,
		AutoNumber: r.AutoNumber,
	}
	if r.Kind == job.KindPlaylist {
		_, failed, _ := r.Counts()
		return retry, failed > 0 || r.State != job.StateCompleted || r.Completeness == "incomplete"
	}
	remaining := job.NewWorkSet(r.URLs()...).Without(r.Succeeded()...)
	retry.URLs = remaining.Items()
	return retry, remaining.Len() > 0
}

// Record stores the result of a finished job.
func (s *Store) Record(ctx context.Context, j job.DownloadJob, result job.Result) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(result.JobID) == "" {
		return errors.New("record run: result has no job id")
	}
	optionsJSON, err := json.Marshal(j.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	var expected, observed, retries int
	if report := result.Verification; report != nil {
		expected = report.State.ExpectedCount
		observed = report.State.ObservedCount
		retries = report.Retries
	}
	errKind, errMessage := describeError(result.Err)
	items := itemsFromResult(result)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (
                id, kind, source, dir, state, completeness,
                expected_count, observed_count, retries, exit_code,
                error_kind, error_message, auto_number, options_json,
                started_at, finished_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.JobID,
			string(result.Kind),
			nullableString(result.Source),
			result.Dir,
			string(result.State),
			nullableString(result.Completeness()),
			expected,
			observed,
			retries,
			result.ExitCode,
			nullableString(errKind),
			nullableString(errMessage),
			boolToInt(j.AutoNumber),
			string(optionsJSON),
			formatTime(result.StartedAt),
			formatTime(result.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, item := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_items (
                    run_id, position, item, label, status, exit_code, error_kind, error_message
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				result.JobID,
				item.Position,
				item.Item,
				nullableString(item.Label),
				string(item.Status),
				item.ExitCode,
				nullableString(item.ErrorKind),
				nullableString(item.ErrorMessage),
			); err != nil {
				return fmt.Errorf("insert run item: %w", err)
			}
		}
		return tx.Commit()
	})
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := runSelect + ` ORDER BY r.started_at DESC, r.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get loads one run and its items. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, runSelect+` WHERE substr(r.id, 1, ?) = ? ORDER BY r.id = ? DESC LIMIT 2`,
		len(id), id, id)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return Run{}, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}

	switch {
	case len(matches) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	run := matches[0]

	items, err := s.items(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Items = items
	return run, nil
}

func (s *Store) items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, item, label, status, exit_code, error_kind, error_message
         FROM run_items WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		var status string
		var label, errKind, errMessage sql.NullString
		if err := rows.Scan(&item.Position, &item.Item, &label, &status, &item.ExitCode, &errKind, &errMessage); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		item.Label = label.String
		item.Status = ItemStatus(status)
		item.ErrorKind = errKind.String
		item.ErrorMessage = errMessage.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run items: %w", err)
	}
	return items, nil
}

const runSelect = `SELECT r.id, r.kind, r.source, r.dir, r.state, r.completeness,
    r.expected_count, r.observed_count, r.retries, r.exit_code,
    r.error_kind, r.error_message, r.auto_number, r.options_json,
    r.started_at, r.finished_at,
    (SELECT COUNT(1) FROM run_items i WHERE i.run_id = r.id AND i.status = 'success'),
    (SELECT COUNT(1) FROM run_items i WHERE i.run_id = r.id AND i.status = 'failed'),
    (SELECT COUNT(1) FROM run_items i WHERE i.run_id = r.id AND i.status = 'untried')
FROM runs r`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (Run, error) {
	var run Run
	var kind, state, optionsJSON, started, finished string
	var source, completeness, errKind, errMessage sql.NullString
	var autoNumber int
	if err := scanner.Scan(
		&run.ID, &kind, &source, &run.Dir, &state, &completeness,
		&run.ExpectedCount, &run.ObservedCount, &run.Retries, &run.ExitCode,
		&errKind, &errMessage, &autoNumber, &optionsJSON,
		&started, &finished,
		&run.succeeded, &run.failed, &run.untried,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Kind = job.Kind(kind)
	run.State = job.State(state)
	run.Source = source.String
	run.Completeness = completeness.String
	run.ErrorKind = errKind.String
	run.ErrorMessage = errMessage.String
	run.AutoNumber = autoNumber != 0
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	if err := json.Unmarshal([]byte(optionsJSON), &run.Options); err != nil {
		return Run{}, fmt.Errorf("decode options for run %s: %w", run.ID, err)
	}
	return run, nil
}

func itemsFromResult(result job.Result) []Item {
	items := make([]Item, 0, len(result.Succeeded)+len(result.Failed)+len(result.Untried))
	for _, o := range result.Succeeded {
		items = append(items, itemFromOutcome(o, ItemSuccess))
	}
	for _, o := range result.Failed {
		items = append(items, itemFromOutcome(o, ItemFailed))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	next := 0
	for _, item := range items {
		if item.Position > next {
			next = item.Position
		}
	}
	for _, url := range result.Untried {
		next++
		items = append(items, Item{Position: next, Item: url, Status: ItemUntried})
	}
	return items
}

func itemFromOutcome(o job.Outcome, status ItemStatus) Item {
	kind, message := describeError(o.Err)
	return Item{
		Position:     o.Index,
		Item:         o.Item,
		Label:        o.Label,
		Status:       status,
		ExitCode:     o.ExitCode,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

func describeError(err error) (kind, message string) {
	if err == nil {
		return "", ""
	}
	return services.Kind(err), err.Error()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
