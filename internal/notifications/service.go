package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortform/internal/config"
)

const userAgent = "shortform/1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyProduced(ctx context.Context, topic, artifactPath string) error
	NotifyRejected(ctx context.Context, topic, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyDaemonStopped(ctx context.Context, processed, failed int, uptime time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
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
		settings: cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) NotifyProduced(ctx context.Context, topic, artifactPath string) error {
	if !n.settings.Completed {
		return nil
	}
	topic = strings.TrimSpace(topic)
	message := fmt.Sprintf("Short ready: %s", topic)
	if artifactPath = strings.TrimSpace(artifactPath); artifactPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, artifactPath)
	}
	data := payload{
		title:    "Shortform - Complete",
		message:  message,
		tags:     []string{"shortform", "produce", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRejected(ctx context.Context, topic, reason string) error {
	if !n.settings.Rejected {
		return nil
	}
	topic = strings.TrimSpace(topic)
	message := fmt.Sprintf("Rejected by quality gate: %s", topic)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Shortform - Rejected",
		message: message,
		tags:    []string{"shortform", "quality", "rejected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.settings.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shortform - Error",
		message:  builder.String(),
		tags:     []string{"shortform", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context) error {
	data := payload{
		title:   "Shortform - Daemon Started",
		message: "Production daemon is watching the queue",
		tags:    []string{"shortform", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context, processed, failed int, uptime time.Duration) error {
	uptime = uptime.Round(time.Second)
	if uptime < 0 {
		uptime = 0
	}

	var title, message string
	if failed == 0 {
		title = "Shortform - Daemon Stopped"
		message = fmt.Sprintf("Daemon stopped after %s: %d items produced", uptime, processed)
	} else {
		title = "Shortform - Daemon Stopped (with errors)"
		message = fmt.Sprintf("Daemon stopped after %s: %d produced, %d failed", uptime, processed, failed)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"shortform", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shortform - Test",
		message:  "Notification system test",
		tags:     []string{"shortform", "test"},
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

func (noopService) NotifyProduced(context.Context, string, string) error                 { return nil }
func (noopService) NotifyRejected(context.Context, string, string) error                 { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) NotifyDaemonStarted(context.Context) error                            { return nil }
func (noopService) NotifyDaemonStopped(context.Context, int, int, time.Duration) error   { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
