package workflow

import (
	"context"
	"errors"

	"memento/internal/importer"
	"memento/internal/logging"
	"memento/internal/notifications"
)

func (m *Manager) notifyRunStarted(ctx context.Context, total, skipped int) {
	m.publish(ctx, notifications.EventRunStarted, notifications.Payload{
		"total":   total,
		"skipped": skipped,
	})
}

func (m *Manager) notifyRunCompleted(ctx context.Context, summary importer.Summary) {
	m.publish(ctx, notifications.EventRunCompleted, notifications.Payload{
		"downloaded": summary.Downloaded,
		"failed":     summary.Failed,
		"bytes":      summary.Bytes,
		"duration":   summary.Duration,
	})
}

func (m *Manager) notifyError(ctx context.Context, label string, err error) {
	if err == nil {
		return
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err,
	})
}

func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, m.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, notification not sent", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
