package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DownloadsDir == "" {
		return errors.New("paths.downloads_dir must be set")
	}
	if c.Paths.UploadsDir == "" {
		return errors.New("paths.uploads_dir must be set")
	}
	if filepath.Clean(c.Paths.UploadsDir) == filepath.Clean(c.Paths.DownloadsDir) {
		return errors.New("paths.uploads_dir and paths.downloads_dir must differ")
	}
	if !strings.Contains(c.Paths.APIBind, ":") {
		return fmt.Errorf("paths.api_bind must be host:port, got %q", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.Concurrency > maxConcurrency {
		return fmt.Errorf("import.concurrency must be between 1 and %d", maxConcurrency)
	}
	if c.Import.BlockingWorkers > maxBlockingWorkers {
		return fmt.Errorf("import.blocking_workers must be between 1 and %d", maxBlockingWorkers)
	}
	if c.Import.JPEGQuality > 100 {
		return errors.New("import.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
