// Package layout turns a fitted photo and its metadata into a Scene. The
// strip and overlay variants share one group builder and differ only in
// where the groups land and what the main layer holds.
package layout

import (
	"errors"
	"image"
	"math"

	"github.com/UnendingLoop/ExifFrame/internal/geometry"
	"github.com/UnendingLoop/ExifFrame/internal/logo"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
)

const (
	StripHeight     = 60
	ReferenceWidth  = 1200
	LogoScale       = 0.15
	Inset           = 12
	LensGap         = 8
	ForegroundScale = 0.9

	DefaultFontFamily   = "Arial"
	DefaultBlurStrength = 5
)

const (
	colorStrip = "#fff"
	colorDark  = "#333"
	colorLight = "#666"
	colorWhite = "#fff"
	colorShade = "#000000cc"
)

// Group names used in built scenes.
const (
	GroupLeft  = "left-info"
	GroupLogo  = "logo"
	GroupRight = "right-info"
)

var (
	ErrNoImage  = errors.New("layout needs a decoded image")
	ErrBadScale = errors.New("layout scale must be positive")
)

// Measurer resolves font metrics for a text run.
type Measurer interface {
	Measure(run scene.TextRun) (width, height float64, err error)
}

// Input is everything one layout pass reads. Logo is the decoded asset for
// the resolved manufacturer, or nil when it could not be loaded.
type Input struct {
	Image    image.Image
	Scale    geometry.ScaleFactor
	Logo     image.Image
	Metadata model.MetadataRecord
}

type Options struct {
	OverlayMode bool
}

type Builder struct {
	measurer Measurer
}

func NewBuilder(m Measurer) *Builder {
	return &Builder{measurer: m}
}

func (b *Builder) BuildStrip(in Input) (*scene.Scene, error) {
	return b.Build(in, Options{})
}

func (b *Builder) BuildOverlay(in Input) (*scene.Scene, error) {
	return b.Build(in, Options{OverlayMode: true})
}

// Build lays out one scene. A make that resolves to no known manufacturer,
// or a missing logo asset, yields the bare scaled photo with no groups.
func (b *Builder) Build(in Input, opts Options) (*scene.Scene, error) {
	if in.Image == nil {
		return nil, ErrNoImage
	}
	scale := float64(in.Scale)
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, ErrBadScale
	}

	photo := scene.ImageRef{Handle: "photo", Asset: in.Image, Scale: scale}
	base := scene.NewImage(photo)
	w, h := base.Width, base.Height

	sc := &scene.Scene{
		Main:                scene.Layer{Width: w, Height: h, Visible: true},
		Strip:               scene.Layer{Width: w, Height: StripHeight, Background: colorStrip},
		PrimaryNaturalWidth: photo.NaturalWidth(),
	}

	if _, ok := logo.ResolveLogo(in.Metadata.Make); !ok || in.Logo == nil {
		sc.Main.Base = []scene.Element{base}
		return sc, nil
	}

	meta := in.Metadata
	textMain, textSub := colorDark, colorLight

	if opts.OverlayMode {
		sc.Main.Base = overlayBase(in.Image, scale, w, h, meta)
		if meta.HiddenBottomInfo {
			textMain, textSub = colorWhite, colorWhite
		}
	} else {
		sc.Main.Base = []scene.Element{base}
	}

	groups, err := b.groups(in.Logo, w, meta, textMain, textSub)
	if err != nil {
		return nil, err
	}

	if opts.OverlayMode && meta.HiddenBottomInfo {
		placeOnImage(groups, w, h)
		sc.Main.Groups = groups
		return sc, nil
	}

	placeInStrip(groups, w)
	sc.Strip.Visible = true
	sc.Strip.Groups = groups
	return sc, nil
}

func overlayBase(img image.Image, scale, w, h float64, meta model.MetadataRecord) []scene.Element {
	bg := scene.NewImage(scene.ImageRef{
		Handle: "background",
		Asset:  img,
		Scale:  scale,
		Blur:   strength(meta.BackgroundBlurStrength) * 0.1,
	})

	fg := scene.NewImage(scene.ImageRef{
		Handle: "foreground",
		Asset:  img,
		Scale:  scale * ForegroundScale,
		Shadow: &scene.Shadow{Color: colorShade, Blur: strength(meta.ShadowBlurStrength) * 20},
	})
	top := math.Floor((h - fg.Height) / 2)
	if meta.HiddenBottomInfo {
		top = math.Floor(h - fg.Height - StripHeight)
	}
	fg = fg.At(math.Floor((w-fg.Width)/2), top)

	return []scene.Element{bg, fg}
}

func strength(v float64) float64 {
	if v == 0 {
		return DefaultBlurStrength
	}
	return v
}

// groups builds the left, logo and right groups at the origin, in drawing order.
func (b *Builder) groups(logoImg image.Image, w float64, meta model.MetadataRecord, textMain, textSub string) ([]scene.Group, error) {
	out := make([]scene.Group, 0, 3)

	if !meta.HiddenLeftInfo {
		g, err := b.leftGroup(w, meta, textMain, textSub)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	out = append(out, scene.NewGroup(GroupLogo,
		scene.NewImage(scene.ImageRef{Handle: "logo", Asset: logoImg, Scale: LogoScale})))

	if !meta.HiddenRightInfo {
		g, err := b.rightGroup(w, meta, textMain)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, nil
}

func (b *Builder) leftGroup(w float64, meta model.MetadataRecord, textMain, textSub string) (scene.Group, error) {
	modelSize, lensSize := 16.0, 12.0
	if w >= ReferenceWidth {
		modelSize, lensSize = 20, 16
	}

	modelRun, err := b.text(meta.Model, fontFamily(meta), modelSize, textMain)
	if err != nil {
		return scene.Group{}, err
	}
	lensRun, err := b.text(meta.LensModel, fontFamily(meta), lensSize, textSub)
	if err != nil {
		return scene.Group{}, err
	}

	return scene.NewGroup(GroupLeft,
		modelRun,
		lensRun.At(0, math.Floor(modelRun.Height+LensGap)),
	), nil
}

func (b *Builder) rightGroup(w float64, meta model.MetadataRecord, textColor string) (scene.Group, error) {
	size := 14.0
	if w >= ReferenceWidth {
		size = 16
	}

	g := scene.NewGroup(GroupRight)
	running := 0.0
	for _, s := range ParameterTexts(meta) {
		run, err := b.text(s, fontFamily(meta), size, textColor)
		if err != nil {
			return scene.Group{}, err
		}
		g.Add(run.At(running, 0))
		running += math.Ceil(run.Width)
	}
	return g, nil
}

func (b *Builder) text(content, family string, size float64, color string) (scene.Element, error) {
	run := scene.TextRun{
		Content:    content,
		FontFamily: family,
		FontSizePx: size,
		Color:      color,
		Bold:       true,
	}
	tw, th, err := b.measurer.Measure(run)
	if err != nil {
		return scene.Element{}, err
	}
	return scene.NewText(run, tw, th), nil
}

func fontFamily(meta model.MetadataRecord) string {
	if meta.FontFamily == "" {
		return DefaultFontFamily
	}
	return meta.FontFamily
}

// placeInStrip positions groups inside the strip band.
func placeInStrip(groups []scene.Group, w float64) {
	for i := range groups {
		g := &groups[i]
		g.Top = math.Floor((StripHeight - g.Height) / 2)
		switch g.Name {
		case GroupLeft:
			g.Left = Inset
		case GroupLogo:
			g.Left = math.Floor((w - g.Width) / 2)
		case GroupRight:
			g.Left = math.Floor(w - g.Width - Inset)
		}
	}
}

// placeOnImage positions groups in the bottom band of the photo itself.
// Vertical frames drop the extra inset.
func placeOnImage(groups []scene.Group, w, h float64) {
	inset := float64(Inset)
	if h > w {
		inset = 0
	}
	for i := range groups {
		g := &groups[i]
		g.Top = math.Floor(h - StripHeight + (StripHeight-g.Height)/2)
		switch g.Name {
		case GroupLeft:
			g.Left = math.Floor(w*0.05) + inset
		case GroupLogo:
			g.Left = math.Floor((w - g.Width) / 2)
		case GroupRight:
			g.Left = math.Floor(w*0.95 - g.Width - inset)
		}
	}
}
