// Package metadata stamps capture time and location onto imported files:
// EXIF for JPEG stills and container tags (via ffmpeg) for videos.
//
// Enrichment is best effort. Callers log a returned *Error and keep the file.
package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"memento/internal/fileutil"
	"memento/internal/logging"
	"memento/internal/manifest"
	"memento/internal/services/ffmpeg"
)

// ExifDateLayout is the EXIF DateTime representation.
const ExifDateLayout = "2006:01:02 15:04:05"

const creationTimeLayout = "2006-01-02T15:04:05.000Z"

// Error reports a failed enrichment step.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("metadata %s %s: %v", e.Op, filepath.Base(e.Path), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Tagger applies metadata to persisted files.
type Tagger struct {
	ffmpeg ffmpeg.Client
	logger *slog.Logger
}

// NewTagger constructs a tagger that uses client for video containers.
func NewTagger(client ffmpeg.Client, logger *slog.Logger) *Tagger {
	return &Tagger{ffmpeg: client, logger: logging.NewComponentLogger(logger, "metadata")}
}

// Tag enriches the file at path according to the record's media kind and
// resets its timestamps to the capture time. Unknown kinds are left alone.
func (t *Tagger) Tag(ctx context.Context, record manifest.Record, path string) error {
	switch record.Kind {
	case manifest.KindImage:
		return t.TagImage(record, path)
	case manifest.KindVideo:
		return t.TagVideo(ctx, record, path)
	default:
		return nil
	}
}

// TagImage rewrites the EXIF block of the JPEG at path.
func (t *Tagger) TagImage(record manifest.Record, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Op: "read image", Path: path, Err: err}
	}
	tagged, err := WriteExif(data, record)
	if err != nil {
		return &Error{Op: "write exif", Path: path, Err: err}
	}
	if err := fileutil.WriteFileAtomic(path, tagged, 0o644); err != nil {
		return &Error{Op: "replace image", Path: path, Err: err}
	}
	if err := fileutil.SetTimes(path, record.CapturedAt); err != nil {
		return &Error{Op: "set times", Path: path, Err: err}
	}
	t.logger.Debug("exif written", logging.String("file", filepath.Base(path)), logging.Bool("gps", record.HasCoordinates()))
	return nil
}

// TagVideo remuxes the video at path into a temporary sibling carrying
// creation_time and location tags, then swaps it into place. The transcoder
// runs to completion even if ctx is cancelled.
func (t *Tagger) TagVideo(ctx context.Context, record manifest.Record, path string) error {
	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".temp.mp4"
	err := t.ffmpeg.CopyWithMetadata(context.WithoutCancel(ctx), path, tmp, VideoTags(record))
	if err == nil {
		if renameErr := os.Rename(tmp, path); renameErr != nil {
			err = renameErr
		}
	}
	if err != nil {
		_ = os.Remove(tmp)
	}
	if timesErr := fileutil.SetTimes(path, record.CapturedAt); timesErr != nil && err == nil {
		err = timesErr
	}
	if err != nil {
		return &Error{Op: "tag video", Path: path, Err: err}
	}
	return nil
}

// VideoTags returns the container tags for a record.
func VideoTags(record manifest.Record) []ffmpeg.Tag {
	tags := []ffmpeg.Tag{{Key: "creation_time", Value: CreationTime(record.CapturedAt)}}
	if record.HasCoordinates() {
		loc := ISO6709(*record.Latitude, *record.Longitude, 0)
		tags = append(tags,
			ffmpeg.Tag{Key: "location", Value: loc},
			ffmpeg.Tag{Key: "location-eng", Value: loc},
		)
	}
	return tags
}

// CreationTime formats ts as UTC ISO-8601 with millisecond precision.
func CreationTime(ts time.Time) string {
	return ts.UTC().Format(creationTimeLayout)
}

// ISO6709 formats a coordinate as signed latitude, signed longitude and
// altitude followed by a slash, e.g. "+52.5200+13.4050+0.000/".
func ISO6709(lat, lon, alt float64) string {
	return fmt.Sprintf("%+.4f%+.4f%+.3f/", lat, lon, alt)
}

// DMS splits a decimal degree value into whole degrees, whole minutes and
// seconds rounded to hundredths. Rounding up to 60.00 seconds carries into
// the minutes, and 60 minutes into the degrees.
func DMS(value float64) (deg, min, hundredths uint32) {
	const perMinute, perDegree = 60 * 100, 60 * 60 * 100
	total := uint64(math.Round(math.Abs(value) * perDegree))
	return uint32(total / perDegree), uint32(total % perDegree / perMinute), uint32(total % perMinute)
}
