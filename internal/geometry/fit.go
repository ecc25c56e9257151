// Package geometry computes the uniform scale that fits an image into a bounding box.
package geometry

import (
	"errors"
	"math"
)

// Bounding box every source image is fitted into before composition.
const (
	MaxWidth  = 1200
	MaxHeight = 800
)

var ErrNonPositive = errors.New("dimensions must be positive")

// ScaleFactor is a uniform multiplier applied to both axes.
type ScaleFactor float64

// Dimensions in device-independent pixels.
type Dimensions struct {
	Width  float64
	Height float64
}

// Fit returns the largest factor not above 1 that keeps natural inside max.
// Non-integral factors are rounded to two decimals, so the scaled result may
// overshoot max by up to 0.005 of the natural size on either axis. A ratio
// that would round to zero is returned unrounded.
func Fit(natural, max Dimensions) (ScaleFactor, error) {
	if natural.Width <= 0 || natural.Height <= 0 || max.Width <= 0 || max.Height <= 0 {
		return 0, ErrNonPositive
	}

	if natural.Width <= max.Width && natural.Height <= max.Height {
		return 1, nil
	}

	ratio := math.Min(max.Width/natural.Width, max.Height/natural.Height)
	if ratio == math.Trunc(ratio) {
		return ScaleFactor(ratio), nil
	}
	if rounded := math.Round(ratio*100) / 100; rounded > 0 {
		return ScaleFactor(rounded), nil
	}
	return ScaleFactor(ratio), nil
}

// Scaled applies s to both axes of d.
func Scaled(d Dimensions, s ScaleFactor) Dimensions {
	return Dimensions{Width: d.Width * float64(s), Height: d.Height * float64(s)}
}
