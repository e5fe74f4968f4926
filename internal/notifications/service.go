package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eideploy/internal/config"
	"eideploy/internal/services"
)

const userAgent = "eideploy/0.1"

// Service defines the notification surface used by the build command.
type Service interface {
	NotifyBuildSucceeded(ctx context.Context, jobID, filename string, size int64) error
	NotifyBuildFailed(ctx context.Context, jobID string, err error) error
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		project:   strings.TrimSpace(cfg.Studio.ProjectID),
		onSuccess: cfg.Notifications.Success,
		onFailure: cfg.Notifications.Failure,
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
	project   string
	onSuccess bool
	onFailure bool
}

func (n *ntfyService) NotifyBuildSucceeded(ctx context.Context, jobID, filename string, size int64) error {
	if !n.onSuccess {
		return nil
	}
	message := fmt.Sprintf("✅ Deployment ready: %s (%s)", strings.TrimSpace(filename), formatBytes(size))
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		message += "\nJob: " + jobID
	}
	if n.project != "" {
		message += "\nProject: " + n.project
	}
	return n.send(ctx, payload{
		title:   "eideploy - Build Complete",
		message: message,
		tags:    []string{"eideploy", "build", "completed"},
	})
}

func (n *ntfyService) NotifyBuildFailed(ctx context.Context, jobID string, err error) error {
	if !n.onFailure {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Deployment build failed")
	if jobID = strings.TrimSpace(jobID); jobID != "" {
		builder.WriteString(" (job ")
		builder.WriteString(jobID)
		builder.WriteString(")")
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(failureDetail(err))
	}
	return n.send(ctx, payload{
		title:    "eideploy - Build Failed",
		message:  builder.String(),
		tags:     []string{"eideploy", "build", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "eideploy - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"eideploy", "test"},
		priority: "low",
	})
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

// failureDetail prefers the server's own rejection message over the wrapped
// error chain.
func failureDetail(err error) string {
	if msg, ok := services.ServerMessage(err); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	switch {
	case errors.Is(err, services.ErrJobFailed):
		return "job finished unsuccessfully"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

type noopService struct{}

func (noopService) NotifyBuildSucceeded(context.Context, string, string, int64) error { return nil }
func (noopService) NotifyBuildFailed(context.Context, string, error) error            { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
