package metadata

import (
	"bytes"
	"errors"
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"

	"memento/internal/manifest"
)

// WriteExif returns a copy of the JPEG in data with capture time and, when
// known, GPS fields set. A missing EXIF block is created.
func WriteExif(data []byte, record manifest.Record) ([]byte, error) {
	parsed, err := jis.NewJpegMediaParser().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse jpeg: %w", err)
	}
	sl, ok := parsed.(*jis.SegmentList)
	if !ok {
		return nil, errors.New("parse jpeg: unexpected segment structure")
	}

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		if rootIb, err = newRootBuilder(); err != nil {
			return nil, err
		}
	}

	stamp := record.CapturedAt.Format(ExifDateLayout)
	if err := rootIb.SetStandardWithName("DateTime", stamp); err != nil {
		return nil, fmt.Errorf("set DateTime: %w", err)
	}

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return nil, fmt.Errorf("exif ifd: %w", err)
	}
	for _, name := range []string{"DateTimeOriginal", "DateTimeDigitized"} {
		if err := exifIb.SetStandardWithName(name, stamp); err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
	}

	if record.HasCoordinates() {
		if err := setGPS(rootIb, *record.Latitude, *record.Longitude); err != nil {
			return nil, err
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return nil, fmt.Errorf("embed exif: %w", err)
	}
	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func newRootBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

func setGPS(rootIb *exif.IfdBuilder, lat, lon float64) error {
	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("gps ifd: %w", err)
	}
	latRef, lonRef := "N", "E"
	if lat < 0 {
		latRef = "S"
	}
	if lon < 0 {
		lonRef = "W"
	}
	fields := []struct {
		name  string
		value any
	}{
		{"GPSVersionID", []byte{2, 3, 0, 0}},
		{"GPSLatitudeRef", latRef},
		{"GPSLatitude", dmsRationals(lat)},
		{"GPSLongitudeRef", lonRef},
		{"GPSLongitude", dmsRationals(lon)},
	}
	for _, f := range fields {
		if err := gpsIb.SetStandardWithName(f.name, f.value); err != nil {
			return fmt.Errorf("set %s: %w", f.name, err)
		}
	}
	return nil
}

func dmsRationals(value float64) []exifcommon.Rational {
	d, m, s := DMS(value)
	return []exifcommon.Rational{
		{Numerator: d, Denominator: 1},
		{Numerator: m, Denominator: 1},
		{Numerator: s, Denominator: 100},
	}
}
