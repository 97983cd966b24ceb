package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/job"
	"ytbatch/internal/notifications"
	"ytbatch/internal/verify"
)

type request struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

type captured struct {
	mu   sync.Mutex
	last request
}

func (c *captured) get() request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.mu.Lock()
		got.last.calls++
		got.last.title = r.Header.Get("Title")
		got.last.tags = r.Header.Get("Tags")
		got.last.priority = r.Header.Get("Priority")
		got.last.body = string(body)
		got.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func finished(started time.Time) (time.Time, time.Time) {
	return started, started.Add(95 * time.Second)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobFinished(context.Background(), job.Result{State: job.StateFailed}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNotifyJobFinishedFormatsPayloads(t *testing.T) {
	start, end := finished(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	tests := []struct {
		name           string
		result         job.Result
		expectTitle    string
		expectBody     []string
		expectTags     string
		expectPriority string
	}{
		{
			name: "list complete",
			result: job.Result{
				Kind:       job.KindSingle,
				State:      job.StateCompleted,
				Succeeded:  []job.Outcome{{Item: "a"}, {Item: "b"}},
				StartedAt:  start,
				FinishedAt: end,
			},
			expectTitle: "ytbatch - Download complete",
			expectBody:  []string{"2 URLs", "2 downloaded in 1m35s"},
			expectTags:  "ytbatch,downloads,completed",
		},
		{
			name: "playlist verified",
			result: job.Result{
				Kind:      job.KindPlaylist,
				Source:    "https://www.youtube.com/playlist?list=PL1",
				State:     job.StateCompleted,
				Succeeded: []job.Outcome{{Item: "id1"}, {Item: "id2"}, {Item: "id3"}},
				Verification: &verify.Report{
					Status: verify.StatusComplete,
					State:  verify.RetryState{ExpectedCount: 3, ObservedCount: 3},
				},
				StartedAt:  start,
				FinishedAt: end,
			},
			expectTitle: "ytbatch - Playlist complete",
			expectBody:  []string{"list=PL1", "3 downloaded", "Verification: complete (3/3 files)"},
			expectTags:  "ytbatch,playlist,completed",
		},
		{
			name: "list with failures",
			result: job.Result{
				Kind:       job.KindSingle,
				State:      job.StateCompleted,
				Succeeded:  []job.Outcome{{Item: "a"}},
				Failed:     []job.Outcome{{Item: "b"}},
				Untried:    []string{"c"},
				Err:        errors.New("one or more items failed"),
				StartedAt:  start,
				FinishedAt: end,
			},
			expectTitle:    "ytbatch - Download finished with errors",
			expectBody:     []string{"3 URLs", "1 succeeded, 1 failed, 1 untried", "Error: one or more items failed"},
			expectTags:     "ytbatch,downloads,error",
			expectPriority: "high",
		},
		{
			name: "playlist incomplete",
			result: job.Result{
				Kind:      job.KindPlaylist,
				Source:    "https://www.youtube.com/playlist?list=PL2",
				State:     job.StateCompleted,
				Succeeded: []job.Outcome{{Item: "id1"}},
				Verification: &verify.Report{
					Status: verify.StatusIncomplete,
					State:  verify.RetryState{ExpectedCount: 4, ObservedCount: 1},
				},
				StartedAt:  start,
				FinishedAt: end,
			},
			expectTitle:    "ytbatch - Playlist finished with errors",
			expectBody:     []string{"Verification: incomplete (1/4 files)"},
			expectTags:     "ytbatch,playlist,error",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, rec := newNtfyServer(t, http.StatusOK)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.NotifyJobFinished(context.Background(), tc.result); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			got := rec.get()

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			for _, fragment := range tc.expectBody {
				if !strings.Contains(got.body, fragment) {
					t.Fatalf("expected body to contain %q, got %q", fragment, got.body)
				}
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNotifyJobFinishedSkipsSuccessWhenDisabled(t *testing.T) {
	server, rec := newNtfyServer(t, http.StatusOK)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.OnSuccess = false

	svc := notifications.NewService(&cfg)
	ok := job.Result{Kind: job.KindSingle, State: job.StateCompleted, Succeeded: []job.Outcome{{Item: "a"}}}
	if err := svc.NotifyJobFinished(context.Background(), ok); err != nil {
		t.Fatalf("notify success: %v", err)
	}
	if got := rec.get(); got.calls != 0 {
		t.Fatalf("expected success to be skipped, got %d calls", got.calls)
	}

	failed := job.Result{Kind: job.KindSingle, State: job.StateFailed, Failed: []job.Outcome{{Item: "a"}}}
	if err := svc.NotifyJobFinished(context.Background(), failed); err != nil {
		t.Fatalf("notify failure: %v", err)
	}
	if got := rec.get(); got.calls != 1 {
		t.Fatalf("expected failure to be delivered, got %d calls", got.calls)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusForbidden)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
