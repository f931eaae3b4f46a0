package testsupport

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// JPEG returns an encoded solid-colour JPEG of the given size.
func JPEG(t testing.TB, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, c)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// PNG returns an encoded PNG whose pixels are c. Use a colour with alpha for
// overlay fixtures.
func PNG(t testing.TB, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, c)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type settable interface {
	Bounds() image.Rectangle
	Set(x, y int, c color.Color)
}

func fill(img settable, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// ZipEntry is a single file placed in a bundle fixture.
type ZipEntry struct {
	Name string
	Data []byte
}

// Zip builds an in-memory zip archive from entries.
func Zip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			t.Fatalf("zip write %s: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// ManifestRecord is a raw manifest entry used to build fixtures.
type ManifestRecord struct {
	Date      string `json:"Date"`
	MediaType string `json:"Media Type"`
	URL       string `json:"Media Download Url"`
	Location  string `json:"Location,omitempty"`
}

// WriteManifest writes a manifest document containing records under dir and
// returns its path.
func WriteManifest(t testing.TB, dir string, records ...ManifestRecord) string {
	t.Helper()
	data := ManifestJSON(t, records...)
	path := filepath.Join(dir, "memories_history.json")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

// ManifestJSON encodes records as a manifest document.
func ManifestJSON(t testing.TB, records ...ManifestRecord) []byte {
	t.Helper()
	if records == nil {
		records = []ManifestRecord{}
	}
	data, err := json.Marshal(map[string]any{"Saved Media": records})
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	return data
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
