package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImport()
	c.normalizeFFmpeg()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadsDir) == "" {
		c.Paths.UploadsDir = filepath.Join(c.Paths.BaseDir, defaultUploadsSubdir)
	}
	if c.Paths.UploadsDir, err = expandPath(c.Paths.UploadsDir); err != nil {
		return fmt.Errorf("paths.uploads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		c.Paths.DownloadsDir = filepath.Join(c.Paths.BaseDir, defaultDownloadsSubdir)
	}
	if c.Paths.DownloadsDir, err = expandPath(c.Paths.DownloadsDir); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AllowedRoot) == "" {
		c.Paths.AllowedRoot = defaultAllowedRoot
	}
	if c.Paths.AllowedRoot, err = expandPath(c.Paths.AllowedRoot); err != nil {
		return fmt.Errorf("paths.allowed_root: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MEMENTO_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeImport() {
	if c.Import.Concurrency <= 0 {
		c.Import.Concurrency = defaultConcurrency
	}
	if c.Import.BlockingWorkers <= 0 {
		c.Import.BlockingWorkers = defaultBlockingWorkers
	}
	if c.Import.FetchTimeoutSeconds <= 0 {
		c.Import.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Import.JPEGQuality <= 0 {
		c.Import.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		if value, ok := os.LookupEnv("MEMENTO_FFMPEG"); ok {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("MEMENTO_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
