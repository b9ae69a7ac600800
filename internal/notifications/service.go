package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sensegrid/internal/config"
	"sensegrid/internal/queue"
)

const userAgent = "SenseGrid-Go/0.1.0"

// Service defines the notification surface exposed to queue components.
type Service interface {
	NotifyCommandFailed(ctx context.Context, entry queue.Entry, reason string) error
	NotifyQueueFlushed(ctx context.Context, delivered int) error
	NotifyBackendOffline(ctx context.Context) error
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
}

func (n *ntfyService) NotifyCommandFailed(ctx context.Context, entry queue.Entry, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "SenseGrid - Command Failed",
		message:  fmt.Sprintf("Command for %s gave up after %d attempts: %s", entry.TargetID, entry.RetryCount, reason),
		tags:     []string{"sensegrid", "queue", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueFlushed(ctx context.Context, delivered int) error {
	data := payload{
		title:   "SenseGrid - Queue Flushed",
		message: fmt.Sprintf("Delivered %d queued commands to the backend", delivered),
		tags:    []string{"sensegrid", "queue", "flushed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackendOffline(ctx context.Context) error {
	data := payload{
		title:   "SenseGrid - Backend Unreachable",
		message: "Commands will be queued locally until connectivity returns",
		tags:    []string{"sensegrid", "connectivity", "offline"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "SenseGrid - Test",
		message:  "Notification system test",
		tags:     []string{"sensegrid", "test"},
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

func (noopService) NotifyCommandFailed(context.Context, queue.Entry, string) error { return nil }
func (noopService) NotifyQueueFlushed(context.Context, int) error                  { return nil }
func (noopService) NotifyBackendOffline(context.Context) error                     { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
