package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memento/internal/config"
)

func TestLoadDefaultConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MEMENTO_API_TOKEN", "")
	t.Setenv("MEMENTO_NTFY_TOPIC", "")
	t.Setenv("MEMENTO_FFMPEG", "")
	t.Chdir(t.TempDir())

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no config file to exist, got path %q", path)
	}

	expectedBase := filepath.Join(tempHome, "Memento")
	if cfg.Paths.BaseDir != expectedBase {
		t.Fatalf("unexpected base dir: got %q want %q", cfg.Paths.BaseDir, expectedBase)
	}
	if cfg.Paths.UploadsDir != filepath.Join(expectedBase, "uploads") {
		t.Fatalf("unexpected uploads dir: %q", cfg.Paths.UploadsDir)
	}
	if cfg.Paths.DownloadsDir != filepath.Join(expectedBase, "downloads") {
		t.Fatalf("unexpected downloads dir: %q", cfg.Paths.DownloadsDir)
	}
	if cfg.Paths.AllowedRoot != tempHome {
		t.Fatalf("expected allowed root to default to home, got %q", cfg.Paths.AllowedRoot)
	}
	if cfg.Import.Concurrency != 10 {
		t.Fatalf("expected default concurrency 10, got %d", cfg.Import.Concurrency)
	}
	if cfg.Import.BlockingWorkers != 2 {
		t.Fatalf("expected 2 blocking workers, got %d", cfg.Import.BlockingWorkers)
	}
	if cfg.Import.FetchTimeoutSeconds != 30 {
		t.Fatalf("expected 30s fetch timeout, got %d", cfg.Import.FetchTimeoutSeconds)
	}
	if !cfg.Import.AddMetadata || !cfg.Import.SkipExisting || !cfg.Import.MergeOverlay {
		t.Fatalf("expected import toggles to default on, got %+v", cfg.Import)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected console log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MEMENTO_API_TOKEN", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
base_dir = "~/memories"
downloads_dir = "~/out"
api_bind = "0.0.0.0:9000"

[import]
concurrency = 4
add_metadata = false

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != configPath {
		t.Fatalf("expected resolved path %q, got %q", configPath, resolved)
	}
	if cfg.Paths.UploadsDir != filepath.Join(tempHome, "memories", "uploads") {
		t.Fatalf("unexpected uploads dir: %q", cfg.Paths.UploadsDir)
	}
	if cfg.Paths.DownloadsDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected downloads dir: %q", cfg.Paths.DownloadsDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Import.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.Import.Concurrency)
	}
	if cfg.Import.AddMetadata {
		t.Fatal("expected add_metadata override to be false")
	}
	if !cfg.Import.MergeOverlay {
		t.Fatal("expected merge_overlay to keep its default")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEMENTO_API_TOKEN", " secret ")
	t.Setenv("MEMENTO_NTFY_TOPIC", "https://ntfy.sh/memories")
	t.Setenv("MEMENTO_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	configPath := filepath.Join(t.TempDir(), "missing.toml")
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected token from environment, got %q", cfg.Paths.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/memories" {
		t.Fatalf("expected ntfy topic from environment, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected ffmpeg from environment, got %q", cfg.FFmpegBinary())
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "same uploads and downloads",
			mutate: func(c *config.Config) { c.Paths.UploadsDir = c.Paths.DownloadsDir },
			want:   "must differ",
		},
		{
			name:   "concurrency too high",
			mutate: func(c *config.Config) { c.Import.Concurrency = 10000 },
			want:   "import.concurrency",
		},
		{
			name:   "jpeg quality",
			mutate: func(c *config.Config) { c.Import.JPEGQuality = 101 },
			want:   "import.jpeg_quality",
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
		{
			name:   "api bind",
			mutate: func(c *config.Config) { c.Paths.APIBind = "localhost" },
			want:   "paths.api_bind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.UploadsDir = "/tmp/memento/uploads"
			cfg.Paths.DownloadsDir = "/tmp/memento/downloads"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BaseDir = filepath.Join(base, "root")
	cfg.Paths.UploadsDir = filepath.Join(base, "root", "uploads")
	cfg.Paths.DownloadsDir = filepath.Join(base, "root", "downloads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.UploadsDir, cfg.Paths.DownloadsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be a directory", dir)
		}
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}
