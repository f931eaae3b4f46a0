// Package manifest parses exported memory manifests into typed records.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RootKey is the manifest key holding the record array.
const RootKey = "Saved Media"

// DateLayout is the capture time format used by the export.
const DateLayout = "2006-01-02 15:04:05 UTC"

const filenameLayout = "2006-01-02_15-04-05"

// Media kinds understood by the merge step.
const (
	KindImage = "image"
	KindVideo = "video"
)

var locationPattern = regexp.MustCompile(`([-\d.]+),\s*([-\d.]+)`)

// ParseError reports a manifest that cannot be used for a run.
type ParseError struct {
	Path   string
	Index  int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("manifest")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is one manifest entry describing a single remote asset.
type Record struct {
	CapturedAt time.Time
	RawDate    string
	Kind       string
	URL        string
	Location   string
	Latitude   *float64
	Longitude  *float64
}

// Filename derives the on-disk name from the capture time and media kind.
func (r Record) Filename() string {
	ext := ".mp4"
	if r.IsImage() {
		ext = ".jpg"
	}
	return r.CapturedAt.Format(filenameLayout) + ext
}

// IsImage reports whether the record describes a still image.
func (r Record) IsImage() bool { return r.Kind == KindImage }

// IsVideo reports whether the record describes a video.
func (r Record) IsVideo() bool { return r.Kind == KindVideo }

// HasCoordinates reports whether both latitude and longitude are known.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type rawRecord struct {
	Date      *string  `json:"Date"`
	MediaType *string  `json:"Media Type"`
	URL       *string  `json:"Media Download Url"`
	Location  string   `json:"Location"`
	Latitude  *float64 `json:"Latitude"`
	Longitude *float64 `json:"Longitude"`
}

// Load reads and parses the manifest at path using the host time zone.
func Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Index: -1, Reason: "open", Err: err}
	}
	defer file.Close()

	records, err := ParseIn(file, time.Local)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return records, nil
}

// Parse decodes a manifest document using the host time zone.
func Parse(r io.Reader) ([]Record, error) {
	return ParseIn(r, time.Local)
}

// ParseIn decodes a manifest document, converting capture times into loc.
func ParseIn(r io.Reader, loc *time.Location) ([]Record, error) {
	if loc == nil {
		loc = time.Local
	}
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &ParseError{Index: -1, Reason: "malformed document", Err: err}
	}
	payload, ok := doc[RootKey]
	if !ok {
		return nil, &ParseError{Index: -1, Reason: fmt.Sprintf("missing %q key", RootKey)}
	}
	var raws []rawRecord
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, &ParseError{Index: -1, Reason: fmt.Sprintf("%q is not a record array", RootKey), Err: err}
	}

	records := make([]Record, 0, len(raws))
	for i, raw := range raws {
		record, err := raw.toRecord(loc)
		if err != nil {
			err.Index = i
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (raw rawRecord) toRecord(loc *time.Location) (Record, *ParseError) {
	date, ok := required(raw.Date)
	if !ok {
		return Record{}, &ParseError{Reason: "missing Date"}
	}
	kind, ok := required(raw.MediaType)
	if !ok {
		return Record{}, &ParseError{Reason: "missing Media Type"}
	}
	url, ok := required(raw.URL)
	if !ok {
		return Record{}, &ParseError{Reason: "missing Media Download Url"}
	}
	captured, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return Record{}, &ParseError{Reason: fmt.Sprintf("date %q does not match %q", date, DateLayout), Err: err}
	}

	record := Record{
		CapturedAt: captured.In(loc),
		RawDate:    date,
		Kind:       strings.ToLower(kind),
		URL:        url,
		Location:   strings.TrimSpace(raw.Location),
		Latitude:   raw.Latitude,
		Longitude:  raw.Longitude,
	}
	if !record.HasCoordinates() {
		record.Latitude, record.Longitude = ParseLocation(record.Location)
	}
	return record, nil
}

// ParseLocation extracts a "lat, lon" pair from free text. Both results are nil
// when no pair is found.
func ParseLocation(text string) (*float64, *float64) {
	match := locationPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil, nil
	}
	lon, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return nil, nil
	}
	return &lat, &lon
}

func required(value *string) (string, bool) {
	if value == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*value)
	return trimmed, trimmed != ""
}
