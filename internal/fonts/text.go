package fonts

import (
	"image"
	"image/draw"

	"github.com/UnendingLoop/ExifFrame/internal/scene"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Measure returns the advance width and line box height of a run.
func (b *Book) Measure(run scene.TextRun) (width, height float64, err error) {
	err = b.WithFace(run.FontFamily, run.FontSizePx, run.Bold, func(face font.Face) error {
		width = float64(font.MeasureString(face, run.Content)) / 64
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return width, run.FontSizePx * LineHeight, nil
}

// Draw renders run into dst with its line box's top-left corner at (x, y),
// with the font size multiplied by scale.
func (b *Book) Draw(dst draw.Image, run scene.TextRun, x, y, scale float64) error {
	c, err := scene.ParseHex(run.Color)
	if err != nil {
		return err
	}

	size := run.FontSizePx * scale
	return b.WithFace(run.FontFamily, size, run.Bold, func(face font.Face) error {
		m := face.Metrics()
		ascent := float64(m.Ascent) / 64
		descent := float64(m.Descent) / 64
		baseline := y + (size*LineHeight-ascent-descent)/2 + ascent

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)},
		}
		d.DrawString(run.Content)
		return nil
	})
}
