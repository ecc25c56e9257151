// Package exifmeta reads the camera fields a watermark needs from EXIF.
package exifmeta

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/rwcarlsen/goexif/exif"
)

// Extract decodes EXIF from a JPEG or TIFF stream. Missing tags leave their
// field empty; a stream with no usable tag at all yields model.ErrNoMetadata.
// ExposureTime is stored as floor(1/seconds): exactly one second gives "1"
// and anything longer comes out as absent.
func Extract(r io.Reader) (model.MetadataRecord, error) {
	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return model.MetadataRecord{}, fmt.Errorf("%w: %v", model.ErrNoMetadata, err)
	}

	rec := model.MetadataRecord{
		Make:         text(x, exif.Make),
		Model:        text(x, exif.Model),
		LensModel:    text(x, exif.LensModel),
		FocalLength:  rational(x, exif.FocalLength),
		FNumber:      rational(x, exif.FNumber),
		ExposureTime: shutterDenominator(x),
		ISO:          integer(x, exif.ISOSpeedRatings),
	}

	if rec == (model.MetadataRecord{}) {
		return rec, model.ErrNoMetadata
	}
	return rec, nil
}

func text(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

func rational(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 || num <= 0 {
		return ""
	}
	v := math.Round(float64(num)/float64(den)*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shutterDenominator(x *exif.Exif) string {
	tag, err := x.Get(exif.ExposureTime)
	if err != nil {
		return ""
	}
	num, den, err := tag.Rat2(0)
	if err != nil || num <= 0 || den <= 0 {
		return ""
	}
	d := math.Floor(float64(den) / float64(num))
	if d < 1 {
		return ""
	}
	return strconv.FormatFloat(d, 'f', 0, 64)
}

func integer(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.Int(0)
	if err != nil || v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}
