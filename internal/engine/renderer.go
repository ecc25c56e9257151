// Package engine runs the render pipeline: decode, fit, layout, composite
// and encode. It also holds the preview slot and the background encoder
// pool used by interactive callers.
package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/UnendingLoop/ExifFrame/internal/geometry"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/layout"
	"github.com/UnendingLoop/ExifFrame/internal/logo"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/mwlogger"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
)

// LogoLoader returns the decoded logo for a manufacturer key.
type LogoLoader interface {
	Image(ctx context.Context, key logo.Key) (image.Image, error)
}

// Exporter rasterises and encodes a finished scene.
type Exporter interface {
	Export(sc *scene.Scene, opts imageproc.ExportOptions) (*imageproc.Encoded, error)
}

// Request is one render of one photo. ImageKey identifies the source bytes
// for slot caching and error messages; Multiplier zero selects the default.
type Request struct {
	ImageKey   string
	Image      []byte
	Metadata   model.MetadataRecord
	Variant    model.Variant
	Multiplier float64
}

// Composition is the laid-out scene before rasterisation.
type Composition struct {
	Scene   *scene.Scene
	Scale   geometry.ScaleFactor
	LogoKey logo.Key
}

// Result is an encoded render together with the scene it came from, so a
// preview can be re-exported without running layout again.
type Result struct {
	Composition
	Encoded *imageproc.Encoded
}

type Renderer struct {
	layout   *layout.Builder
	logos    LogoLoader
	exporter Exporter
	box      geometry.Dimensions
}

func NewRenderer(b *layout.Builder, logos LogoLoader, exp Exporter) *Renderer {
	return &Renderer{
		layout:   b,
		logos:    logos,
		exporter: exp,
		box:      geometry.Dimensions{Width: geometry.MaxWidth, Height: geometry.MaxHeight},
	}
}

// ParseVariant maps a user-supplied variant name, defaulting to the strip.
func ParseVariant(v string) (model.Variant, error) {
	if v == "" {
		return model.VariantStrip, nil
	}
	if !model.VariantsMap[model.Variant(v)] {
		return "", model.ErrIncorrectVariant
	}
	return model.Variant(v), nil
}

// Compose decodes the photo and lays out its scene.
func (r *Renderer) Compose(ctx context.Context, req Request) (*Composition, error) {
	img, err := imageproc.DecodeBytes(req.Image, req.ImageKey)
	if err != nil {
		return nil, err
	}
	return r.compose(ctx, img, req)
}

// Render composes and encodes synchronously.
func (r *Renderer) Render(ctx context.Context, req Request) (*Result, error) {
	comp, err := r.Compose(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.export(ctx, comp, req.Multiplier)
}

func (r *Renderer) export(ctx context.Context, comp *Composition, multiplier float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enc, err := r.exporter.Export(comp.Scene, imageproc.ExportOptions{Multiplier: multiplier})
	if err != nil {
		return nil, err
	}
	return &Result{Composition: *comp, Encoded: enc}, nil
}

func (r *Renderer) compose(ctx context.Context, img image.Image, req Request) (*Composition, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	variant := req.Variant
	if variant == "" {
		variant = model.VariantStrip
	}
	if !model.VariantsMap[variant] {
		return nil, model.ErrIncorrectVariant
	}

	b := img.Bounds()
	scale, err := geometry.Fit(geometry.Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}, r.box)
	if err != nil {
		return nil, &model.ImageLoadError{Source: req.ImageKey, Err: err}
	}

	comp := &Composition{Scale: scale}
	var logoImg image.Image
	if key, ok := logo.ResolveLogo(req.Metadata.Make); ok {
		logoImg, err = r.logos.Image(ctx, key)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			// rendered without watermark content
			logger.Warn().Err(err).Str("logo", string(key)).Msg("Failed to load logo asset")
			logoImg = nil
		default:
			comp.LogoKey = key
		}
	}

	comp.Scene, err = r.layout.Build(layout.Input{
		Image:    img,
		Scale:    scale,
		Logo:     logoImg,
		Metadata: req.Metadata,
	}, layout.Options{OverlayMode: variant == model.VariantOverlay})
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}

	return comp, nil
}
