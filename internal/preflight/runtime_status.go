package preflight

import (
	"context"
	"strings"

	"memento/internal/config"
)

// CheckNtfyFromConfig evaluates notification status from config and connectivity.
func CheckNtfyFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
}
