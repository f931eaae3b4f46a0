package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"memento/internal/config"
)

const userAgent = "Memento-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service defines the notification surface exposed to the run controller.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		enabled: map[Event]bool{
			EventRunStarted:   cfg.Notifications.RunStarted,
			EventRunCompleted: cfg.Notifications.RunCompleted,
			EventError:        cfg.Notifications.Errors,
			EventTest:         true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventRunStarted:
		return payload{
			title:   "Memento - Import Started",
			message: fmt.Sprintf("Importing %d memories (%d already present)", intValue(data, "total"), intValue(data, "skipped")),
			tags:    []string{"memento", "import", "started"},
		}, true
	case EventRunCompleted:
		downloaded := intValue(data, "downloaded")
		failed := intValue(data, "failed")
		duration := durationValue(data, "duration").Round(time.Second)
		size := humanize.Bytes(uint64(max(int64Value(data, "bytes"), 0)))
		if failed == 0 {
			return payload{
				title:   "Memento - Import Complete",
				message: fmt.Sprintf("Imported %d memories (%s) in %s", downloaded, size, duration),
				tags:    []string{"memento", "import", "completed"},
			}, true
		}
		return payload{
			title:   "Memento - Import Complete (with errors)",
			message: fmt.Sprintf("Imported %d memories (%s), %d failed in %s", downloaded, size, failed, duration),
			tags:    []string{"memento", "import", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := strings.TrimSpace(stringValue(data, "context")); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if msg := strings.TrimSpace(stringValue(data, "error")); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "Memento - Error",
			message:  builder.String(),
			tags:     []string{"memento", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "Memento - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"memento", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n.client == nil {
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

func stringValue(data Payload, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intValue(data Payload, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func int64Value(data Payload, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if v, ok := data[key].(time.Duration); ok && v > 0 {
		return v
	}
	return 0
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
