package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eideploy/internal/config"
	"eideploy/internal/notifications"
	"eideploy/internal/services"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Studio.ProjectID = "42"
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.NotifyBuildSucceeded(context.Background(), "1", "model.zip", 10); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNotifyBuildSucceeded(t *testing.T) {
	server, got := newNtfyServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(server.URL))

	if err := svc.NotifyBuildSucceeded(context.Background(), "12345", "model.zip", 2048); err != nil {
		t.Fatalf("NotifyBuildSucceeded returned error: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*got))
	}
	msg := (*got)[0]
	if msg.title != "eideploy - Build Complete" {
		t.Fatalf("unexpected title %q", msg.title)
	}
	if msg.tags != "eideploy,build,completed" {
		t.Fatalf("unexpected tags %q", msg.tags)
	}
	for _, want := range []string{"model.zip", "2.0 KiB", "Job: 12345", "Project: 42"} {
		if !strings.Contains(msg.body, want) {
			t.Fatalf("body %q missing %q", msg.body, want)
		}
	}
}

func TestNotifyBuildFailedUsesServerMessage(t *testing.T) {
	server, got := newNtfyServer(t, http.StatusOK)
	svc := notifications.NewService(configFor(server.URL))

	err := services.Reject("submit", "Invalid deployment type")
	if err := svc.NotifyBuildFailed(context.Background(), "", err); err != nil {
		t.Fatalf("NotifyBuildFailed returned error: %v", err)
	}
	msg := (*got)[0]
	if msg.priority != "high" {
		t.Fatalf("expected high priority, got %q", msg.priority)
	}
	if msg.body != "❌ Deployment build failed: Invalid deployment type" {
		t.Fatalf("unexpected body %q", msg.body)
	}
}

func TestNotifyRespectsToggles(t *testing.T) {
	server, got := newNtfyServer(t, http.StatusOK)
	cfg := configFor(server.URL)
	cfg.Notifications.Success = false
	cfg.Notifications.Failure = false
	svc := notifications.NewService(cfg)

	_ = svc.NotifyBuildSucceeded(context.Background(), "1", "a.zip", 1)
	_ = svc.NotifyBuildFailed(context.Background(), "1", services.ErrJobFailed)
	if len(*got) != 0 {
		t.Fatalf("expected no requests, got %d", len(*got))
	}
}

func TestNtfyErrorStatusIsReported(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusForbidden)
	svc := notifications.NewService(configFor(server.URL))

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
