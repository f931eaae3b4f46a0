package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"memento/internal/config"
	"memento/internal/deps"
	"memento/internal/fetch"
	"memento/internal/gate"
	"memento/internal/importer"
	"memento/internal/ledger"
	"memento/internal/logging"
	"memento/internal/merge"
	"memento/internal/metadata"
	"memento/internal/notifications"
	"memento/internal/services/ffmpeg"
	"memento/internal/workpool"
)

// Manager coordinates the active import run.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	gate      *gate.Gate
	pool      *workpool.Pool
	progress  *ledger.Progress
	downloads *ledger.Downloads
	failures  *ledger.Failures
	pipeline  *importer.Pipeline

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	outputDir string
	lastErr   error
}

// Option configures optional Manager collaborators.
type Option func(*managerOptions)

type managerOptions struct {
	notifier notifications.Service
	fetcher  importer.Fetcher
	ffmpeg   ffmpeg.Client
	tagger   importer.Tagger
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *managerOptions) { o.notifier = notifier }
}

// WithFetcher overrides the HTTP fetcher.
func WithFetcher(fetcher importer.Fetcher) Option {
	return func(o *managerOptions) { o.fetcher = fetcher }
}

// WithTranscoder overrides the ffmpeg client used for overlays and video tags.
func WithTranscoder(client ffmpeg.Client) Option {
	return func(o *managerOptions) { o.ffmpeg = client }
}

// WithTagger overrides metadata enrichment.
func WithTagger(tagger importer.Tagger) Option {
	return func(o *managerOptions) { o.tagger = tagger }
}

// NewManager constructs a manager with its process-wide fetch client,
// blocking pool and ledgers. Call Close to release the pool.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if options.notifier == nil {
		options.notifier = notifications.NewService(cfg)
	}
	if options.fetcher == nil {
		options.fetcher = fetch.New(time.Duration(cfg.Import.FetchTimeoutSeconds) * time.Second)
	}
	if options.ffmpeg == nil {
		resolved := deps.ResolveFFmpeg(cfg.FFmpegBinary())
		options.ffmpeg = ffmpeg.NewCLI(ffmpeg.WithBinary(resolved.Command))
	}
	if options.tagger == nil {
		options.tagger = metadata.NewTagger(options.ffmpeg, logger)
	}

	m := &Manager{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		notifier:  options.notifier,
		gate:      gate.New(false),
		pool:      workpool.New(cfg.Import.BlockingWorkers),
		progress:  ledger.NewProgress(),
		downloads: ledger.NewDownloads(),
		failures:  ledger.NewFailures(),
		outputDir: cfg.Paths.DownloadsDir,
	}
	engine := merge.NewEngine(options.ffmpeg, merge.Options{
		JPEGQuality: cfg.Import.JPEGQuality,
		Logger:      logger,
	})
	m.pipeline = importer.New(options.fetcher, engine, options.tagger, m.pool, m.gate, importer.Ledgers{
		Progress:  m.progress,
		Downloads: m.downloads,
		Failures:  m.failures,
	}, logger)
	return m
}

// Close cancels any active run, waits for it, and stops the blocking pool.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopLocked()
	m.mu.Unlock()
	m.pool.Close()
}
