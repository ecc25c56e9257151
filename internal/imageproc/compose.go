package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/UnendingLoop/ExifFrame/internal/layout"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
	"github.com/disintegration/imaging"
)

// MaxPixels caps the rasterised canvas area.
const MaxPixels = 120_000_000

var ErrInvalidMultiplier = errors.New("multiplier must be a positive finite number")

// TextDrawer draws a text run with its line box's top-left at (x, y).
type TextDrawer interface {
	Draw(dst draw.Image, run scene.TextRun, x, y, scale float64) error
}

// Fill is a solid rectangle in flattened canvas coordinates.
type Fill struct {
	Left, Top, Width, Height float64
	Color                    string
}

// Flat is a scene merged into one canvas with absolute element positions.
type Flat struct {
	Width    float64
	Height   float64
	Fills    []Fill
	Elements []scene.Element
}

// ExportOptions configures one export. A zero Multiplier selects
// DefaultMultiplier.
type ExportOptions struct {
	Multiplier float64
}

// Encoded is a finished PNG.
type Encoded struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Multiplier  float64
}

type Compositor struct {
	text TextDrawer
}

func NewCompositor(text TextDrawer) *Compositor {
	return &Compositor{text: text}
}

// Flatten copies every element of both layers into a single canvas in
// insertion order. Group offsets are baked into element positions and the
// strip is moved below the main layer.
func Flatten(sc *scene.Scene) Flat {
	c := sc.Clone()

	f := Flat{Width: c.Main.Width, Height: c.Main.Height}
	f.add(c.Main, 0)
	if c.Strip.Visible {
		f.Height += c.Strip.Height
		f.add(c.Strip, c.Main.Height)
	}
	return f
}

func (f *Flat) add(l scene.Layer, offsetY float64) {
	if l.Background != "" {
		f.Fills = append(f.Fills, Fill{Top: offsetY, Width: l.Width, Height: l.Height, Color: l.Background})
	}
	for _, e := range l.Base {
		e.Top += offsetY
		f.Elements = append(f.Elements, e)
	}
	for _, g := range l.Groups {
		for _, e := range g.Elements {
			e.Left += g.Left
			e.Top += g.Top + offsetY
			f.Elements = append(f.Elements, e)
		}
	}
}

// DefaultMultiplier scales output so the photo keeps its native width
// relative to the layout reference width, and never shrinks it. For extreme
// aspect ratios it is capped so the canvas stays under MaxPixels.
func DefaultMultiplier(sc *scene.Scene) float64 {
	m := math.Max(sc.PrimaryNaturalWidth/layout.ReferenceWidth, 1)

	area := sc.Main.Width * sc.Main.Height
	if sc.Strip.Visible {
		area += sc.Main.Width * sc.Strip.Height
	}
	if area <= 0 {
		return m
	}
	// headroom for per-axis rounding in px
	return math.Min(m, math.Sqrt(MaxPixels*0.99/area))
}

// Export rasterises the scene and encodes it as PNG at best compression.
func (c *Compositor) Export(sc *scene.Scene, opts ExportOptions) (*Encoded, error) {
	m := opts.Multiplier
	if m == 0 {
		m = DefaultMultiplier(sc)
	}
	if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return nil, ErrInvalidMultiplier
	}

	img, err := c.Rasterize(Flatten(sc), m)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, &model.EncodingError{Err: err}
	}

	return &Encoded{
		Data:        buf.Bytes(),
		ContentType: model.PNG,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Multiplier:  m,
	}, nil
}

// Rasterize draws a flattened canvas at m times its layout size over white.
func (c *Compositor) Rasterize(f Flat, m float64) (*image.NRGBA, error) {
	w, h := px(f.Width, m), px(f.Height, m)
	if w <= 0 || h <= 0 {
		return nil, &model.EncodingError{Err: fmt.Errorf("empty canvas %dx%d", w, h)}
	}
	if w*h > MaxPixels {
		return nil, &model.EncodingError{Err: fmt.Errorf("canvas %dx%d exceeds %d pixels", w, h, MaxPixels)}
	}

	dst := imaging.New(w, h, color.White)

	for _, fill := range f.Fills {
		col, err := scene.ParseHex(fill.Color)
		if err != nil {
			return nil, &model.EncodingError{Err: err}
		}
		r := image.Rect(px(fill.Left, m), px(fill.Top, m), px(fill.Left+fill.Width, m), px(fill.Top+fill.Height, m))
		draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Over)
	}

	for _, e := range f.Elements {
		var err error
		switch e.Kind {
		case scene.KindImage:
			dst, err = drawImage(dst, e, m)
		case scene.KindText:
			err = c.drawText(dst, e, m)
		}
		if err != nil {
			return nil, &model.EncodingError{Err: err}
		}
	}

	return dst, nil
}

func drawImage(dst *image.NRGBA, e scene.Element, m float64) (*image.NRGBA, error) {
	if e.Image.Asset == nil {
		return dst, errors.New("image element without asset")
	}
	w, h := px(e.Width, m), px(e.Height, m)
	if w <= 0 || h <= 0 {
		return dst, nil
	}
	x, y := px(e.Left, m), px(e.Top, m)

	if sh := e.Image.Shadow; sh != nil && sh.Blur > 0 {
		col, err := scene.ParseHex(sh.Color)
		if err != nil {
			return dst, err
		}
		shadow, pad := dropShadow(w, h, sh.Blur*m, col)
		at := image.Pt(x-pad+px(sh.OffsetX, m), y-pad+px(sh.OffsetY, m))
		dst = imaging.Overlay(dst, shadow, at, 1)
	}

	src := imaging.Resize(e.Image.Asset, w, h, imaging.Lanczos)
	if e.Image.Blur > 0 {
		src = softBlur(src, blurSigma(e.Image.Blur, max(w, h)))
	}

	return imaging.Overlay(dst, src, image.Pt(x, y), 1), nil
}

func (c *Compositor) drawText(dst draw.Image, e scene.Element, m float64) error {
	if e.Text.Content == "" {
		return nil
	}
	if c.text == nil {
		return errors.New("no text drawer configured")
	}
	return c.text.Draw(dst, e.Text, e.Left*m, e.Top*m, m)
}

// px converts a layout coordinate to a device pixel at multiplier m.
func px(v, m float64) int {
	return int(math.Round(v * m))
}
