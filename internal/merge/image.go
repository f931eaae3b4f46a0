package merge

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ComposeImage alpha-composites overlay (resized to the main image with a
// Lanczos filter) onto main and returns an opaque JPEG. A nil overlay
// re-encodes main alone.
func ComposeImage(main, overlay []byte, quality int) ([]byte, error) {
	base, _, err := image.Decode(bytes.NewReader(main))
	if err != nil {
		return nil, &MergeError{Op: "decode main image", Err: err}
	}
	bounds := base.Bounds()
	rect := image.Rect(0, 0, bounds.Dx(), bounds.Dy())

	canvas := image.NewRGBA(rect)
	draw.Draw(canvas, rect, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	draw.Draw(canvas, rect, base, bounds.Min, draw.Over)

	if len(overlay) > 0 {
		top, _, err := image.Decode(bytes.NewReader(overlay))
		if err != nil {
			return nil, &MergeError{Op: "decode overlay image", Err: err}
		}
		scaled := resize.Resize(uint(rect.Dx()), uint(rect.Dy()), premultiplied(top), resize.Lanczos3)
		draw.Draw(canvas, rect, scaled, scaled.Bounds().Min, draw.Over)
	}

	return encodeJPEG(canvas, quality)
}

// ToJPEG returns data unchanged when it already is a JPEG, otherwise decodes
// and re-encodes it flattened onto black.
func ToJPEG(data []byte, quality int) ([]byte, error) {
	if isJPEG(data) {
		return data, nil
	}
	return ComposeImage(data, nil, quality)
}

// NormalizeOverlay decodes an overlay in any supported still format and
// re-encodes it as PNG with an alpha channel.
func NormalizeOverlay(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &MergeError{Op: "decode overlay", Err: err}
	}
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return encodePNG(nrgba)
}

// premultiplied copies img into an RGBA buffer so the resampler works on
// premultiplied colour.
func premultiplied(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &MergeError{Op: "encode jpeg", Err: err}
	}
	return buf.Bytes(), nil
}

func isJPEG(data []byte) bool {
	return mimetype.Detect(data).Is("image/jpeg")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &MergeError{Op: "encode png", Err: err}
	}
	return buf.Bytes(), nil
}
