package imageproc

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// maxDirectSigma bounds the sigma blurred at full resolution. Wider blurs
// run on a downscaled copy.
const maxDirectSigma = 8.0

// softBlur is a Gaussian blur whose cost does not grow with sigma.
func softBlur(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return imaging.Clone(img)
	}
	if sigma <= maxDirectSigma {
		return imaging.Blur(img, sigma)
	}

	b := img.Bounds()
	k := sigma / maxDirectSigma
	sw := int(math.Max(1, math.Ceil(float64(b.Dx())/k)))
	sh := int(math.Max(1, math.Ceil(float64(b.Dy())/k)))

	small := imaging.Resize(img, sw, sh, imaging.Linear)
	small = imaging.Blur(small, maxDirectSigma)
	return imaging.Resize(small, b.Dx(), b.Dy(), imaging.Linear)
}

// dropShadow renders a w x h silhouette in c, blurred by radius, on a
// transparent canvas padded by pad pixels on every side.
func dropShadow(w, h int, radius float64, c color.NRGBA) (img *image.NRGBA, pad int) {
	pad = int(math.Ceil(radius))
	canvas := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	draw.Draw(canvas, image.Rect(pad, pad, pad+w, pad+h), image.NewUniform(c), image.Point{}, draw.Src)

	// canvas shadows blur with sigma = radius / 2
	return softBlur(canvas, radius/2), pad
}

// blurSigma converts a relative blur strength into a pixel sigma for an
// image whose longer side is longest pixels.
func blurSigma(strength float64, longest int) float64 {
	return strength * float64(longest) * 0.05
}
