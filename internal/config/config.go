package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	BaseDir      string `toml:"base_dir"`
	UploadsDir   string `toml:"uploads_dir"`
	DownloadsDir string `toml:"downloads_dir"`
	LogDir       string `toml:"log_dir"`
	AllowedRoot  string `toml:"allowed_root"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Import contains the defaults applied to every import run.
type Import struct {
	Concurrency         int  `toml:"concurrency"`
	BlockingWorkers     int  `toml:"blocking_workers"`
	FetchTimeoutSeconds int  `toml:"fetch_timeout_seconds"`
	AddMetadata         bool `toml:"add_metadata"`
	SkipExisting        bool `toml:"skip_existing"`
	MergeOverlay        bool `toml:"merge_overlay"`
	JPEGQuality         int  `toml:"jpeg_quality"`
}

// FFmpeg contains configuration for the external transcoder.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStarted     bool   `toml:"run_started"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for Memento.
//
// Configuration sections by subsystem:
//   - Paths: working directories, output root guard, and API bind address
//   - Import: concurrency limits, timeouts, and per-run defaults
//   - FFmpeg: transcoder binary used for video overlay and metadata
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Import        Import        `toml:"import"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// A missing .env file is the common case.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("memento.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories used by the daemon and
// the import pipeline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BaseDir, c.Paths.UploadsDir, c.Paths.DownloadsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// FFmpegBinary returns the configured ffmpeg binary, or an empty string when
// the lookup should fall back to the sidecar and PATH rules.
func (c *Config) FFmpegBinary() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FFmpeg.Binary)
}
