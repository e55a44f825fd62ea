package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"transcribe/internal/config"
	"transcribe/internal/jobs"
)

const userAgent = "Transcribe-Go/0.1.0"

// Service defines the notification surface used by the watch loop.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job *jobs.Job) error
	NotifyJobFailed(ctx context.Context, job *jobs.Job) error
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

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func displayName(job *jobs.Job) string {
	if job == nil {
		return "unknown"
	}
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	if url := strings.TrimSpace(job.URL); url != "" {
		return url
	}
	return job.ID
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job *jobs.Job) error {
	message := fmt.Sprintf("✅ Transcript ready: %s", displayName(job))
	if job != nil && job.Duration > 0 {
		message = fmt.Sprintf("%s (%s)", message, jobs.FormatDuration(job.Duration))
	}
	data := payload{
		title:    "Transcribe - Completed",
		message:  message,
		tags:     []string{"transcribe", "job", "completed"},
		priority: "high",
	}
	if job != nil {
		data.click = job.URL
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job *jobs.Job) error {
	var builder strings.Builder
	builder.WriteString("❌ Processing failed: ")
	builder.WriteString(displayName(job))
	if job != nil {
		if reason := strings.TrimSpace(job.Error); reason != "" {
			builder.WriteString("\n")
			builder.WriteString(reason)
		}
	}
	data := payload{
		title:    "Transcribe - Failed",
		message:  builder.String(),
		tags:     []string{"transcribe", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Transcribe - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"transcribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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
	if data.click != "" {
		req.Header.Set("Click", data.click)
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

func (noopService) NotifyJobCompleted(context.Context, *jobs.Job) error { return nil }
func (noopService) NotifyJobFailed(context.Context, *jobs.Job) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
