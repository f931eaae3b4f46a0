package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"memento/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The allowed output root is the temp directory itself.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.BaseDir = base
	cfgVal.Paths.UploadsDir = filepath.Join(base, "uploads")
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.AllowedRoot = base
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Import.Concurrency = 4
	cfgVal.Import.FetchTimeoutSeconds = 5
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by the API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithConcurrency overrides the default admission limit.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.Concurrency = n
	}
}

// WithNtfyTopic points notifications at the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithStubbedFFmpeg writes a stub ffmpeg that exits with the given code and
// points the config at it.
func WithStubbedFFmpeg(exitCode int) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		script := []byte("#!/bin/sh\nexit " + strconv.Itoa(exitCode) + "\n")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub ffmpeg: %v", err)
		}
		b.cfg.FFmpeg.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.BaseDir
}
