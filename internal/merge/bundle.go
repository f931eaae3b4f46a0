package merge

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mainMarker    = "-main"
	overlayMarker = "-overlay"

	// maxEntrySize guards against decompression bombs.
	maxEntrySize = 2 << 30
)

// Bundle is the content of a zip payload pairing a main asset with an
// optional overlay.
type Bundle struct {
	Main        []byte
	MainName    string
	Overlay     []byte
	OverlayName string
}

// HasOverlay reports whether the bundle carried an overlay entry.
func (b Bundle) HasOverlay() bool {
	return len(b.Overlay) > 0
}

// IsBundle reports whether a payload is a zip bundle, either because the
// server labelled it so or because the bytes carry a zip signature.
func IsBundle(labelledZip bool, body []byte) bool {
	if labelledZip {
		return true
	}
	for m := mimetype.Detect(body); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

// ExtractBundle reads the main and overlay entries from a zip payload. The
// first entry whose name contains "-main" is the main asset; the first
// containing "-overlay" is the overlay.
func ExtractBundle(data []byte) (Bundle, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Bundle{}, &BundleFormatError{Reason: "unreadable zip", Err: err}
	}

	var bundle Bundle
	var mainFile, overlayFile *zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch {
		case mainFile == nil && strings.Contains(f.Name, mainMarker):
			mainFile = f
		case overlayFile == nil && strings.Contains(f.Name, overlayMarker):
			overlayFile = f
		}
	}
	if mainFile == nil {
		return Bundle{}, &BundleFormatError{Reason: "no main media entry"}
	}

	if bundle.Main, err = readEntry(mainFile); err != nil {
		return Bundle{}, &BundleFormatError{Reason: "read " + mainFile.Name, Err: err}
	}
	bundle.MainName = mainFile.Name
	if overlayFile != nil {
		if bundle.Overlay, err = readEntry(overlayFile); err != nil {
			return Bundle{}, &BundleFormatError{Reason: "read " + overlayFile.Name, Err: err}
		}
		bundle.OverlayName = overlayFile.Name
	}
	return bundle, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, fmt.Errorf("entry too large: %d bytes", f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}
