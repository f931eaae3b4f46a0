package config

const (
	defaultConfigPath          = "~/.config/memento/config.toml"
	defaultBaseDir             = "~/Memento"
	defaultUploadsSubdir       = "uploads"
	defaultDownloadsSubdir     = "downloads"
	defaultLogDir              = "~/.local/share/memento/logs"
	defaultAllowedRoot         = "~"
	defaultAPIBind             = "127.0.0.1:8000"
	defaultConcurrency         = 10
	defaultBlockingWorkers     = 2
	defaultFetchTimeoutSeconds = 30
	defaultJPEGQuality         = 95
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10

	maxConcurrency     = 256
	maxBlockingWorkers = 64
)

// Default returns a Config populated with repository defaults. Uploads and
// downloads directories are derived from the base directory during
// normalization when left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:     defaultBaseDir,
			LogDir:      defaultLogDir,
			AllowedRoot: defaultAllowedRoot,
			APIBind:     defaultAPIBind,
		},
		Import: Import{
			Concurrency:         defaultConcurrency,
			BlockingWorkers:     defaultBlockingWorkers,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			AddMetadata:         true,
			SkipExisting:        true,
			MergeOverlay:        true,
			JPEGQuality:         defaultJPEGQuality,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunStarted:     false,
			RunCompleted:   true,
			Errors:         true,
		},
	}
}
