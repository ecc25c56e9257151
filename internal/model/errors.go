package model

import (
	"errors"
	"fmt"
)

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")   // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")              // 400
	ErrIncorrectID       error = errors.New("incorrect render UUID")                   // 400
	ErrRenderNotFound    error = errors.New("specified render UUID doesn't exist")     // 404
	ErrResultNotReady    error = errors.New("requested render is not processed yet")   // 404
	ErrIncorrectVariant  error = errors.New("watermark variant is not supported")      // 400
	ErrEmptySource       error = errors.New("empty/incorrect source image provided")   // 400
	ErrIncorrectMult     error = errors.New("multiplier must be a positive number")    // 400
	ErrUnsupportedFormat error = errors.New("unsupported base image format")           // 400
	ErrIncorrectProfile  error = errors.New("incorrect defaults profile name")         // 400
	ErrDefaultsNotFound  error = errors.New("no default parameters saved for profile") // 404
	ErrIncorrectMeta     error = errors.New("incorrect watermark parameters")          // 400
	ErrNoMetadata        error = errors.New("image carries no readable EXIF metadata") // fallback to defaults
	ErrImageLoad         error = errors.New("image could not be decoded")              // 422
	ErrEncoding          error = errors.New("composited image could not be encoded")   // 500
	ErrEncodeTimeout     error = errors.New("encoding did not finish before deadline") // 503
)

// ImageLoadError reports that a source or logo asset could not be decoded.
// The render that hit it fails without affecting other slots.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %q: %v", e.Source, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

func (e *ImageLoadError) Is(target error) bool { return target == ErrImageLoad }

// EncodingError reports a rasterisation or PNG encoding failure.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode composited image: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }
