// Package importer executes one import run: every eligible manifest record is
// fetched, rebuilt from its bundle when needed, written under the output
// directory, stamped with its capture time and optionally tagged.
//
// Admission is bounded by a weighted semaphore sized to the run's
// concurrency. Each item passes the pause gate before and after admission, so
// pausing stops new fetches while letting in-flight items finish. CPU-bound
// and external-tool steps run on the shared blocking pool. Outcomes flow into
// the progress, downloads and failures ledgers.
package importer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"

	"memento/internal/fetch"
	"memento/internal/fileutil"
	"memento/internal/gate"
	"memento/internal/ledger"
	"memento/internal/logging"
	"memento/internal/manifest"
	"memento/internal/merge"
	"memento/internal/services"
	"memento/internal/workpool"
)

// Fetcher downloads a remote asset.
type Fetcher interface {
	Get(ctx context.Context, url string) (fetch.Asset, error)
}

// Merger persists a bundle to disk.
type Merger interface {
	Persist(ctx context.Context, kind string, bundle merge.Bundle, outputPath string, mergeOverlay bool) (merge.Result, error)
}

// Tagger enriches a persisted file with capture metadata.
type Tagger interface {
	Tag(ctx context.Context, record manifest.Record, path string) error
}

// Ledgers groups the per-run state the pipeline reports into.
type Ledgers struct {
	Progress  *ledger.Progress
	Downloads *ledger.Downloads
	Failures  *ledger.Failures
}

// Options are the per-run settings.
type Options struct {
	OutputDir    string
	Concurrency  int
	AddMetadata  bool
	MergeOverlay bool
}

// Outcome is the final state of one item.
type Outcome int

const (
	OutcomeDownloaded Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Summary aggregates the outcomes of one Run.
type Summary struct {
	Downloaded int
	Failed     int
	Cancelled  int
	Bytes      int64
	Duration   time.Duration
}

// BytesPerSecond returns the average throughput of the run.
func (s Summary) BytesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

// Pipeline wires the per-item steps together. It is safe to reuse across runs
// but runs must not overlap.
type Pipeline struct {
	fetcher Fetcher
	merger  Merger
	tagger  Tagger
	pool    *workpool.Pool
	gate    *gate.Gate
	ledgers Ledgers
	logger  *slog.Logger
}

// New constructs a pipeline.
func New(fetcher Fetcher, merger Merger, tagger Tagger, pool *workpool.Pool, g *gate.Gate, ledgers Ledgers, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		merger:  merger,
		tagger:  tagger,
		pool:    pool,
		gate:    g,
		ledgers: ledgers,
		logger:  logging.NewComponentLogger(logger, "importer"),
	}
}

// Run processes records and returns once every admitted item has finished.
// Cancelling ctx stops admission; items already running end with
// OutcomeCancelled and are not counted in the ledgers.
func (p *Pipeline) Run(ctx context.Context, records []manifest.Record, opts Options) Summary {
	logger := logging.WithContext(ctx, p.logger)
	width := opts.Concurrency
	if width <= 0 {
		width = 1
	}
	sem := semaphore.NewWeighted(int64(width))
	started := time.Now()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		summary  Summary
		sampler  = logging.NewProgressSampler(10)
		finished int
	)
	total := len(records)

	logger.Info("import started",
		logging.Int("items", total),
		logging.Int("concurrency", width),
		logging.String("output_dir", opts.OutputDir),
		logging.Bool("add_metadata", opts.AddMetadata),
		logging.Bool("merge_overlay", opts.MergeOverlay),
	)

	for _, record := range records {
		if err := p.gate.Wait(ctx); err != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(record manifest.Record) {
			defer wg.Done()
			defer sem.Release(1)
			outcome, bytes := p.process(ctx, record, opts)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomeDownloaded:
				summary.Downloaded++
				summary.Bytes += bytes
			case OutcomeFailed:
				summary.Failed++
				summary.Bytes += bytes
			default:
				summary.Cancelled++
				return
			}
			finished++
			if sampler.ShouldLog(finished, total) {
				logger.Info("import progress",
					logging.Int("processed", finished),
					logging.Int("total", total),
					logging.Int("downloaded", summary.Downloaded),
					logging.Int("failed", summary.Failed),
				)
			}
		}(record)
	}
	wg.Wait()

	summary.Duration = time.Since(started)
	logger.Info("import finished",
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("failed", summary.Failed),
		logging.Int("cancelled", summary.Cancelled),
		logging.Bytes("bytes", summary.Bytes),
		logging.String("throughput", humanize.Bytes(uint64(max(summary.BytesPerSecond(), 0)))+"/s"),
		logging.Duration("duration", summary.Duration.Round(time.Millisecond)),
	)
	return summary
}

func (p *Pipeline) process(ctx context.Context, record manifest.Record, opts Options) (Outcome, int64) {
	filename := record.Filename()
	ctx = services.WithItemKey(ctx, filename)
	logger := logging.WithContext(ctx, p.logger)

	// Admission may have raced a pause.
	if err := p.gate.Wait(ctx); err != nil {
		return OutcomeCancelled, 0
	}

	bytes, err := p.importOne(ctx, record, filepath.Join(opts.OutputDir, filename), opts)
	if ctx.Err() != nil {
		logger.Debug("item cancelled", logging.Error(ctx.Err()))
		return OutcomeCancelled, bytes
	}
	if err != nil {
		reason := err.Error()
		p.ledgers.Failures.Record(filename, reason)
		p.ledgers.Progress.RecordFailure(bytes)
		logging.WarnWithContext(logger, "memory import failed", "item_failed",
			logging.String("url", record.URL),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, failureHint(err)),
			logging.String(logging.FieldImpact, "memory recorded as failed; rerun with skip_existing to retry"),
		)
		return OutcomeFailed, bytes
	}

	p.ledgers.Downloads.Append(ledger.DownloadedEntry{
		Filename:  filename,
		Date:      record.CapturedAt,
		MediaType: record.Kind,
	})
	p.ledgers.Progress.RecordSuccess(bytes)
	logger.Debug("memory imported", logging.Bytes("size", bytes))
	return OutcomeDownloaded, bytes
}

// importOne runs fetch, persist, timestamp and tagging for a single record and
// returns the number of bytes fetched.
func (p *Pipeline) importOne(ctx context.Context, record manifest.Record, outputPath string, opts Options) (int64, error) {
	asset, err := p.fetcher.Get(ctx, record.URL)
	if err != nil {
		return 0, err
	}
	transferred := int64(len(asset.Body))

	if merge.IsBundle(asset.IsZip(), asset.Body) {
		bundle, err := merge.ExtractBundle(asset.Body)
		if err != nil {
			return transferred, err
		}
		var result merge.Result
		err = p.pool.Do(ctx, func() error {
			var perr error
			result, perr = p.merger.Persist(ctx, record.Kind, bundle, outputPath, opts.MergeOverlay)
			return perr
		})
		if err != nil {
			return transferred, err
		}
		if result.Fallback != "" {
			logging.WithContext(ctx, p.logger).Debug("bundle persisted without overlay",
				logging.String("reason", result.Fallback),
			)
		}
	} else if err := fileutil.WriteFileAtomic(outputPath, asset.Body, 0o644); err != nil {
		return transferred, services.Wrap(services.ErrStorage, "persist", "write file", filepath.Base(outputPath), err)
	}

	if err := fileutil.SetTimes(outputPath, record.CapturedAt); err != nil {
		return transferred, services.Wrap(services.ErrStorage, "persist", "set file times", "", err)
	}

	if ctx.Err() != nil {
		return transferred, ctx.Err()
	}

	if opts.AddMetadata && p.tagger != nil {
		err := p.pool.Do(ctx, func() error {
			return p.tagger.Tag(ctx, record, outputPath)
		})
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return transferred, err
		default:
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "metadata enrichment failed", "metadata_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the file is saved; capture time is still reflected in its mtime"),
				logging.String(logging.FieldImpact, "memory kept without embedded metadata"),
			)
		}
	}
	return transferred, nil
}

func failureHint(err error) string {
	var (
		fetchErr  *fetch.Error
		bundleErr *merge.BundleFormatError
		kindErr   *merge.UnsupportedMediaError
		mergeErr  *merge.MergeError
		pathErr   *os.PathError
	)
	switch {
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode == 403 || fetchErr.StatusCode == 410 {
			return "download links expire; request a fresh export"
		}
		return "check network connectivity and the export's download URLs"
	case errors.As(err, &bundleErr):
		return "the downloaded archive has no main asset"
	case errors.As(err, &kindErr):
		return "only image and video memories are supported"
	case errors.As(err, &mergeErr):
		return "the asset could not be decoded as an image"
	case errors.As(err, &pathErr):
		return "check free space and permissions on the output directory"
	default:
		return "see error for details"
	}
}
