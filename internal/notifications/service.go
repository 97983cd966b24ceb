package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytbatch/internal/config"
	"ytbatch/internal/job"
	"ytbatch/internal/verify"
)

const userAgent = "ytbatch/0.1.0"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyJobFinished(ctx context.Context, result job.Result) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
}

func (n *ntfyService) NotifyJobFinished(ctx context.Context, result job.Result) error {
	if result.OK() && !n.onSuccess {
		return nil
	}
	return n.send(ctx, jobPayload(result))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ytbatch - Test",
		message:  "Notification system test",
		tags:     []string{"ytbatch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func jobPayload(result job.Result) payload {
	noun := "Download"
	kindTag := "downloads"
	if result.Kind == job.KindPlaylist {
		noun = "Playlist"
		kindTag = "playlist"
	}

	duration := result.Duration().Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var builder strings.Builder
	builder.WriteString(subject(result))
	builder.WriteString("\n")

	if result.OK() {
		fmt.Fprintf(&builder, "%d downloaded in %s", len(result.Succeeded), duration)
		if line := verificationLine(result.Verification); line != "" {
			builder.WriteString("\n")
			builder.WriteString(line)
		}
		return payload{
			title:   fmt.Sprintf("ytbatch - %s complete", noun),
			message: builder.String(),
			tags:    []string{"ytbatch", kindTag, "completed"},
		}
	}

	fmt.Fprintf(&builder, "%d succeeded, %d failed, %d untried in %s",
		len(result.Succeeded), len(result.Failed), len(result.Untried), duration)
	if line := verificationLine(result.Verification); line != "" {
		builder.WriteString("\n")
		builder.WriteString(line)
	}
	if result.Err != nil {
		builder.WriteString("\nError: ")
		builder.WriteString(strings.TrimSpace(result.Err.Error()))
	}
	return payload{
		title:    fmt.Sprintf("ytbatch - %s finished with errors", noun),
		message:  builder.String(),
		tags:     []string{"ytbatch", kindTag, "error"},
		priority: "high",
	}
}

func subject(result job.Result) string {
	if source := strings.TrimSpace(result.Source); source != "" {
		return source
	}
	total := len(result.Succeeded) + len(result.Failed) + len(result.Untried)
	if total == 1 {
		return "1 URL"
	}
	return fmt.Sprintf("%d URLs", total)
}

func verificationLine(report *verify.Report) string {
	if report == nil {
		return ""
	}
	if report.Status == verify.StatusUnknown {
		return "Verification: unknown"
	}
	return fmt.Sprintf("Verification: %s (%d/%d files)",
		report.Status, report.State.ObservedCount, report.State.ExpectedCount)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobFinished(context.Context, job.Result) error { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
