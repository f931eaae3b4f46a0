// Package merge rebuilds composed memories from zip bundles: it extracts the
// main asset and optional overlay, composites stills in-process, and delegates
// video overlays to ffmpeg with a main-only fallback.
package merge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"memento/internal/fileutil"
	"memento/internal/logging"
	"memento/internal/manifest"
	"memento/internal/services/ffmpeg"
)

// Result describes how a bundle was persisted.
type Result struct {
	OverlayApplied bool
	// Fallback is set when an overlay existed but the main asset was written alone.
	Fallback string
}

// Options configures an Engine.
type Options struct {
	JPEGQuality int
	TempDir     string
	Logger      *slog.Logger
}

// Engine persists bundles to disk.
type Engine struct {
	ffmpeg  ffmpeg.Client
	quality int
	tempDir string
	logger  *slog.Logger
}

// NewEngine constructs an engine that uses client for video overlays.
func NewEngine(client ffmpeg.Client, opts Options) *Engine {
	return &Engine{
		ffmpeg:  client,
		quality: opts.JPEGQuality,
		tempDir: opts.TempDir,
		logger:  logging.NewComponentLogger(opts.Logger, "merge"),
	}
}

// Persist writes the bundle for a record of the given kind to outputPath.
// With mergeOverlay off the main asset is written alone.
func (e *Engine) Persist(ctx context.Context, kind string, bundle Bundle, outputPath string, mergeOverlay bool) (Result, error) {
	overlay := bundle.Overlay
	if !mergeOverlay {
		overlay = nil
	}
	switch kind {
	case manifest.KindImage:
		return e.persistImage(bundle.Main, overlay, outputPath)
	case manifest.KindVideo:
		return e.persistVideo(ctx, bundle.Main, overlay, outputPath)
	default:
		return Result{}, &UnsupportedMediaError{Kind: kind}
	}
}

func (e *Engine) persistImage(main, overlay []byte, outputPath string) (Result, error) {
	var (
		data []byte
		err  error
	)
	if len(overlay) > 0 {
		data, err = ComposeImage(main, overlay, e.quality)
	} else {
		data, err = ToJPEG(main, e.quality)
	}
	if err != nil {
		return Result{}, err
	}
	if err := fileutil.WriteFileAtomic(outputPath, data, 0o644); err != nil {
		return Result{}, &MergeError{Op: "write image", Err: err}
	}
	return Result{OverlayApplied: len(overlay) > 0}, nil
}

func (e *Engine) persistVideo(ctx context.Context, main, overlay []byte, outputPath string) (Result, error) {
	writeMain := func(reason string) (Result, error) {
		if err := fileutil.WriteFileAtomic(outputPath, main, 0o644); err != nil {
			return Result{}, &MergeError{Op: "write video", Err: err}
		}
		return Result{Fallback: reason}, nil
	}
	if len(overlay) == 0 {
		return writeMain("")
	}

	png, err := NormalizeOverlay(overlay)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "overlay unreadable, keeping main video", "overlay_invalid",
			logging.String("file", filepath.Base(outputPath)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video saved without its overlay"),
		)
		return writeMain("overlay unreadable")
	}

	workDir, err := os.MkdirTemp(e.tempDir, "memento-merge-*")
	if err != nil {
		return Result{}, &MergeError{Op: "create work dir", Err: err}
	}
	defer os.RemoveAll(workDir)

	mainPath := filepath.Join(workDir, "main.mp4")
	overlayPath := filepath.Join(workDir, "overlay.png")
	mergedPath := filepath.Join(workDir, "merged.mp4")
	if err := os.WriteFile(mainPath, main, 0o644); err != nil {
		return Result{}, &MergeError{Op: "stage main video", Err: err}
	}
	if err := os.WriteFile(overlayPath, png, 0o644); err != nil {
		return Result{}, &MergeError{Op: "stage overlay", Err: err}
	}

	// ffmpeg always runs to completion so a cancelled run never leaves a child behind.
	if err := e.ffmpeg.Overlay(context.WithoutCancel(ctx), mainPath, overlayPath, mergedPath); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "video overlay failed, keeping main video", "overlay_transcode_failed",
			logging.String("file", filepath.Base(outputPath)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video saved without its overlay"),
			logging.String(logging.FieldErrorHint, "check that ffmpeg is installed and supports scale2ref"),
		)
		return writeMain("overlay transcode failed")
	}

	merged, err := os.ReadFile(mergedPath)
	if err != nil {
		return writeMain("overlay output missing")
	}
	if err := fileutil.WriteFileAtomic(outputPath, merged, 0o644); err != nil {
		return Result{}, &MergeError{Op: "write video", Err: err}
	}
	return Result{OverlayApplied: true}, nil
}
