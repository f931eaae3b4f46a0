package preflight

import (
	"context"

	"memento/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckDirectories(cfg)
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// CheckDirectories verifies the uploads and downloads directories.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Uploads directory", cfg.Paths.UploadsDir),
		CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir),
	}
}
