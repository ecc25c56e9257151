// Package imageproc decodes source photos and turns laid-out scenes into
// encoded PNG images: flattening, resampling, blur, drop shadows and text.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/disintegration/imaging"
)

// MaxSourcePixels caps the declared size of a decoded source image.
const MaxSourcePixels = 150_000_000

// Decode reads a JPEG, PNG, GIF or TIFF stream and applies its EXIF
// orientation. The header is checked against MaxSourcePixels before any
// pixel is allocated. Any failure is reported as *model.ImageLoadError
// naming source.
func Decode(r io.Reader, source string) (image.Image, error) {
	if r == nil {
		return nil, &model.ImageLoadError{Source: source, Err: errors.New("nil reader")}
	}

	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, &model.ImageLoadError{Source: source, Err: err}
	}
	if area := int64(cfg.Width) * int64(cfg.Height); area > MaxSourcePixels {
		return nil, &model.ImageLoadError{
			Source: source,
			Err:    fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxSourcePixels),
		}
	}

	img, err := imaging.Decode(io.MultiReader(&head, r), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &model.ImageLoadError{Source: source, Err: err}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &model.ImageLoadError{Source: source, Err: fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())}
	}

	return img, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte, source string) (image.Image, error) {
	if len(data) == 0 {
		return nil, &model.ImageLoadError{Source: source, Err: errors.New("empty input")}
	}
	return Decode(bytes.NewReader(data), source)
}

// DetectFormat returns the content type of an encoded image without
// decoding its pixels.
func DetectFormat(data []byte) (string, error) {
	_, f, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", &model.ImageLoadError{Source: "upload", Err: err}
	}

	format, err := imaging.FormatFromExtension(f)
	if err != nil {
		return "", model.ErrUnsupportedFormat
	}

	ct, ok := model.GetCType[format]
	if !ok {
		return "", model.ErrUnsupportedFormat
	}
	return ct, nil
}
