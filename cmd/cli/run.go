package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/UnendingLoop/ExifFrame/internal/engine"
	"github.com/UnendingLoop/ExifFrame/internal/exifmeta"
	"github.com/UnendingLoop/ExifFrame/internal/fonts"
	"github.com/UnendingLoop/ExifFrame/internal/imageproc"
	"github.com/UnendingLoop/ExifFrame/internal/layout"
	"github.com/UnendingLoop/ExifFrame/internal/logo"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/wb-go/wbf/zlog"
)

type renderOptions struct {
	logoDir    string
	fontDir    string
	variant    string
	multiplier float64
	logLevel   string
	overrides  model.MetadataRecord
}

var inputExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".tif": true, ".tiff": true,
}

func (o *renderOptions) renderer() (*engine.Renderer, error) {
	book, err := fonts.NewBook(o.fontDir)
	if err != nil {
		return nil, fmt.Errorf("loading fonts: %w", err)
	}
	return engine.NewRenderer(
		layout.NewBuilder(book),
		logo.NewCache(logo.NewDirStore(o.logoDir)),
		imageproc.NewCompositor(book),
	), nil
}

// request reads path and layers the flag overrides over its EXIF.
func (o *renderOptions) request(path string) (engine.Request, error) {
	variant, err := engine.ParseVariant(o.variant)
	if err != nil {
		return engine.Request{}, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return engine.Request{}, fmt.Errorf("reading %s: %w", path, err)
	}

	meta := o.overrides
	exif, err := exifmeta.Extract(bytes.NewReader(src))
	switch {
	case err == nil:
		meta = meta.ApplyDefaults(exif)
	case errors.Is(err, model.ErrNoMetadata):
		zlog.Logger.Debug().Str("file", path).Msg("No EXIF found")
	default:
		zlog.Logger.Warn().Err(err).Str("file", path).Msg("Failed to read EXIF")
	}

	return engine.Request{
		ImageKey:   path,
		Image:      src,
		Metadata:   meta,
		Variant:    variant,
		Multiplier: o.multiplier,
	}, nil
}

func renderFile(ctx context.Context, r *engine.Renderer, o *renderOptions, in, out string) error {
	req, err := o.request(in)
	if err != nil {
		return err
	}
	res, err := r.Render(ctx, req)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", in, err)
	}
	if err := writeResult(out, res.Encoded); err != nil {
		return err
	}

	zlog.Logger.Info().
		Str("file", out).
		Int("width", res.Encoded.Width).
		Int("height", res.Encoded.Height).
		Str("logo", string(res.LogoKey)).
		Msg("Rendered")
	return nil
}

func renderDir(ctx context.Context, r *engine.Renderer, o *renderOptions, inDir, outDir string, concurrency int) error {
	files, err := listImages(inDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	items := make([]engine.BatchItem, 0, len(files))
	for _, f := range files {
		path := filepath.Join(inDir, f)
		items = append(items, engine.BatchItem{
			Name: f,
			Load: func() (engine.Request, error) { return o.request(path) },
		})
	}

	failed := 0
	for _, res := range r.RenderBatch(ctx, items, concurrency) {
		if res.Err == nil {
			res.Err = writeResult(filepath.Join(outDir, outputName(res.Name)), res.Result.Encoded)
		}
		if res.Err != nil {
			failed++
			zlog.Logger.Error().Err(res.Err).Str("file", res.Name).Msg("Render failed")
			continue
		}
		zlog.Logger.Info().Str("file", res.Name).Msg("Rendered")
	}

	zlog.Logger.Info().Int("total", len(items)).Int("failed", failed).Msg("Batch complete")
	if failed > 0 {
		return fmt.Errorf("%d of %d renders failed", failed, len(items))
	}
	return nil
}

// listImages returns the supported image files of dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !inputExt[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func outputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
}

func writeResult(path string, enc *imageproc.Encoded) error {
	if err := os.WriteFile(path, enc.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func printLogos(w io.Writer) {
	for _, m := range logo.Known() {
		fmt.Fprintf(w, "%-12s %s\n", m.Key, m.DisplayName)
	}
}
