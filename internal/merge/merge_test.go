package merge_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"memento/internal/merge"
	"memento/internal/services/ffmpeg"
	"memento/internal/testsupport"
)

type fakeFFmpeg struct {
	calls   int
	err     error
	output  []byte
	ctxDone bool
}

func (f *fakeFFmpeg) Overlay(ctx context.Context, videoPath, overlayPath, outputPath string) error {
	f.calls++
	f.ctxDone = ctx.Err() != nil
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return err
	}
	if _, err := os.Stat(overlayPath); err != nil {
		return err
	}
	return os.WriteFile(outputPath, f.output, 0o644)
}

func (f *fakeFFmpeg) CopyWithMetadata(context.Context, string, string, []ffmpeg.Tag) error {
	return nil
}

func TestIsBundle(t *testing.T) {
	archive := testsupport.Zip(t, testsupport.ZipEntry{Name: "a-main.jpg", Data: []byte("x")})
	if !merge.IsBundle(false, archive) {
		t.Fatal("expected zip signature to be detected")
	}
	if !merge.IsBundle(true, []byte("anything")) {
		t.Fatal("expected labelled zip to be a bundle")
	}
	if merge.IsBundle(false, testsupport.JPEG(t, 2, 2, color.White)) {
		t.Fatal("expected plain JPEG not to be a bundle")
	}
}

func TestExtractBundle(t *testing.T) {
	archive := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "abc-overlay.png", Data: []byte("overlay")},
		testsupport.ZipEntry{Name: "abc-main.mp4", Data: []byte("main")},
	)
	bundle, err := merge.ExtractBundle(archive)
	if err != nil {
		t.Fatalf("ExtractBundle returned error: %v", err)
	}
	if string(bundle.Main) != "main" || bundle.MainName != "abc-main.mp4" {
		t.Fatalf("unexpected main entry %q (%s)", bundle.Main, bundle.MainName)
	}
	if !bundle.HasOverlay() || string(bundle.Overlay) != "overlay" {
		t.Fatalf("unexpected overlay %q", bundle.Overlay)
	}
}

func TestExtractBundleErrors(t *testing.T) {
	var bfe *merge.BundleFormatError

	_, err := merge.ExtractBundle([]byte("not a zip"))
	if !errors.As(err, &bfe) {
		t.Fatalf("expected BundleFormatError for garbage, got %v", err)
	}

	archive := testsupport.Zip(t, testsupport.ZipEntry{Name: "abc-overlay.png", Data: []byte("o")})
	_, err = merge.ExtractBundle(archive)
	if !errors.As(err, &bfe) {
		t.Fatalf("expected BundleFormatError for missing main, got %v", err)
	}
}

func TestComposeImageAppliesOverlay(t *testing.T) {
	main := testsupport.JPEG(t, 40, 20, color.RGBA{R: 0, G: 0, B: 255, A: 255})
	overlay := testsupport.PNG(t, 10, 5, color.NRGBA{R: 255, G: 0, B: 0, A: 255})

	out, err := merge.ComposeImage(main, overlay, 95)
	if err != nil {
		t.Fatalf("ComposeImage returned error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected JPEG output: %v", err)
	}
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 20 {
		t.Fatalf("expected main image size, got %v", img.Bounds())
	}
	r, _, b, _ := img.At(20, 10).RGBA()
	if r>>8 < 200 || b>>8 > 60 {
		t.Fatalf("expected opaque red overlay to cover the frame, got r=%d b=%d", r>>8, b>>8)
	}
}

func TestComposeImageTransparentOverlayKeepsBase(t *testing.T) {
	main := testsupport.JPEG(t, 16, 16, color.RGBA{R: 0, G: 200, B: 0, A: 255})
	overlay := testsupport.PNG(t, 16, 16, color.NRGBA{R: 255, G: 0, B: 0, A: 0})

	out, err := merge.ComposeImage(main, overlay, 95)
	if err != nil {
		t.Fatalf("ComposeImage returned error: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, _, _ := img.At(8, 8).RGBA()
	if g>>8 < 150 || r>>8 > 60 {
		t.Fatalf("expected base colour to show through, got r=%d g=%d", r>>8, g>>8)
	}
}

func TestComposeImageDecodeFailure(t *testing.T) {
	var merr *merge.MergeError
	if _, err := merge.ComposeImage([]byte("garbage"), nil, 90); !errors.As(err, &merr) {
		t.Fatalf("expected MergeError, got %v", err)
	}
	main := testsupport.JPEG(t, 4, 4, color.White)
	if _, err := merge.ComposeImage(main, []byte("garbage"), 90); !errors.As(err, &merr) {
		t.Fatalf("expected MergeError for bad overlay, got %v", err)
	}
}

func TestToJPEGPassesThroughJPEG(t *testing.T) {
	main := testsupport.JPEG(t, 4, 4, color.White)
	out, err := merge.ToJPEG(main, 90)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, main) {
		t.Fatal("expected JPEG input to be returned verbatim")
	}

	pngData := testsupport.PNG(t, 4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	out, err = merge.ToJPEG(pngData, 90)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("expected PNG to be converted to JPEG: %v", err)
	}
}

func TestPersistImageWithOverlay(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "2024-01-01_00-00-00.jpg")
	bundle := merge.Bundle{
		Main:    testsupport.JPEG(t, 8, 8, color.White),
		Overlay: testsupport.PNG(t, 4, 4, color.NRGBA{A: 128}),
	}
	engine := merge.NewEngine(&fakeFFmpeg{}, merge.Options{JPEGQuality: 90, TempDir: dir})
	result, err := engine.Persist(context.Background(), "image", bundle, out, true)
	if err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if !result.OverlayApplied {
		t.Fatal("expected overlay to be applied")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("expected JPEG on disk: %v", err)
	}
}

func TestPersistMergeOverlayDisabled(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "clip.mp4")
	ff := &fakeFFmpeg{output: []byte("merged")}
	engine := merge.NewEngine(ff, merge.Options{TempDir: dir})
	bundle := merge.Bundle{Main: []byte("main-video"), Overlay: testsupport.PNG(t, 2, 2, color.White)}

	result, err := engine.Persist(context.Background(), "video", bundle, out, false)
	if err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if ff.calls != 0 || result.OverlayApplied {
		t.Fatalf("expected no overlay work, calls=%d result=%+v", ff.calls, result)
	}
	if data, _ := os.ReadFile(out); string(data) != "main-video" {
		t.Fatalf("expected main asset on disk, got %q", data)
	}
}

func TestPersistVideoOverlay(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "clip.mp4")
	ff := &fakeFFmpeg{output: []byte("merged-video")}
	engine := merge.NewEngine(ff, merge.Options{TempDir: dir})
	bundle := merge.Bundle{Main: []byte("main-video"), Overlay: testsupport.PNG(t, 2, 2, color.White)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := engine.Persist(ctx, "video", bundle, out, true)
	if err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}
	if !result.OverlayApplied || ff.calls != 1 {
		t.Fatalf("expected overlay applied once, calls=%d result=%+v", ff.calls, result)
	}
	if ff.ctxDone {
		t.Fatal("expected ffmpeg to receive a non-cancelled context")
	}
	if data, _ := os.ReadFile(out); string(data) != "merged-video" {
		t.Fatalf("expected merged video on disk, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected work dir cleanup, found %d entries", len(entries))
	}
}

func TestPersistVideoFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		overlay []byte
		ffErr   error
	}{
		{"transcoder failure", nil, errors.New("exit status 1")},
		{"invalid overlay", []byte("not an image"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "clip.mp4")
			overlay := tt.overlay
			if overlay == nil {
				overlay = testsupport.PNG(t, 2, 2, color.White)
			}
			engine := merge.NewEngine(&fakeFFmpeg{err: tt.ffErr}, merge.Options{TempDir: dir})
			result, err := engine.Persist(context.Background(), "video", merge.Bundle{Main: []byte("main-video"), Overlay: overlay}, out, true)
			if err != nil {
				t.Fatalf("expected fallback rather than error, got %v", err)
			}
			if result.OverlayApplied || result.Fallback == "" {
				t.Fatalf("expected fallback result, got %+v", result)
			}
			if data, _ := os.ReadFile(out); string(data) != "main-video" {
				t.Fatalf("expected main asset on disk, got %q", data)
			}
		})
	}
}

func TestPersistUnsupportedKind(t *testing.T) {
	engine := merge.NewEngine(&fakeFFmpeg{}, merge.Options{})
	_, err := engine.Persist(context.Background(), "audio", merge.Bundle{Main: []byte("x")}, filepath.Join(t.TempDir(), "x.mp4"), true)
	var uerr *merge.UnsupportedMediaError
	if !errors.As(err, &uerr) || uerr.Kind != "audio" {
		t.Fatalf("expected UnsupportedMediaError, got %v", err)
	}
}
