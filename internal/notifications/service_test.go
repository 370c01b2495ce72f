package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shortform/internal/config"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = append(*captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T, captured *[]capturedRequest, mutate func(*config.Notifications)) Service {
	t.Helper()
	server := newCaptureServer(t, captured)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = true
	cfg.Notifications.Rejected = true
	cfg.Notifications.Errors = true
	if mutate != nil {
		mutate(&cfg.Notifications)
	}
	return NewService(&cfg)
}

func TestNotifyProducedSendsHighPriority(t *testing.T) {
	var captured []capturedRequest
	service := newTestService(t, &captured, nil)

	if err := service.NotifyProduced(context.Background(), "Harriet Tubman", "/out/short-1.mp4"); err != nil {
		t.Fatalf("notify produced: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(captured))
	}
	if captured[0].priority != "high" {
		t.Fatalf("expected high priority, got %q", captured[0].priority)
	}
	if captured[0].title != "Shortform - Complete" {
		t.Fatalf("unexpected title %q", captured[0].title)
	}
}

func TestNotifyRejectedIncludesReason(t *testing.T) {
	var captured []capturedRequest
	service := newTestService(t, &captured, nil)

	if err := service.NotifyRejected(context.Background(), "Harriet Tubman", "blocked phrase"); err != nil {
		t.Fatalf("notify rejected: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(captured))
	}
	if got := captured[0].body; !strings.Contains(got, "blocked phrase") {
		t.Fatalf("reason missing from body %q", got)
	}
}

func TestDisabledEventsAreSuppressed(t *testing.T) {
	var captured []capturedRequest
	service := newTestService(t, &captured, func(n *config.Notifications) {
		n.Completed = false
		n.Rejected = false
		n.Errors = false
	})

	ctx := context.Background()
	_ = service.NotifyProduced(ctx, "t", "")
	_ = service.NotifyRejected(ctx, "t", "")
	_ = service.NotifyError(ctx, errors.New("boom"), "research")

	if len(captured) != 0 {
		t.Fatalf("expected no requests, got %d", len(captured))
	}
}

func TestDaemonLifecycleAlwaysSends(t *testing.T) {
	var captured []capturedRequest
	service := newTestService(t, &captured, func(n *config.Notifications) {
		n.Completed = false
	})

	ctx := context.Background()
	if err := service.NotifyDaemonStarted(ctx); err != nil {
		t.Fatalf("daemon started: %v", err)
	}
	if err := service.NotifyDaemonStopped(ctx, 3, 1, 90*time.Second); err != nil {
		t.Fatalf("daemon stopped: %v", err)
	}
	if len(captured) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(captured))
	}
	if !strings.Contains(captured[1].body, "3 produced") {
		t.Fatalf("unexpected stop summary %q", captured[1].body)
	}
}

func TestNoTopicReturnsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	service := NewService(&cfg)
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test notification: %v", err)
	}
}

