package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{R: 90, A: 255}), path))
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "notes.txt", "c.gif", "d.tiff", "e.TIF"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	files, err := listImages(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"a.png", "b.JPG", "c.gif", "d.tiff", "e.TIF"}, files)

	_, err = listImages(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "IMG_01.png", outputName("IMG_01.JPG"))
	require.Equal(t, "shot.v2.png", outputName("shot.v2.jpeg"))
}

func TestRenderOptions_Request(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.jpg")
	writeJPEG(t, path, 40, 20)

	o := &renderOptions{variant: "overlay", multiplier: 2, overrides: model.MetadataRecord{Make: "Sony"}}
	req, err := o.request(path)
	require.NoError(t, err)
	require.Equal(t, model.VariantOverlay, req.Variant)
	require.Equal(t, 2.0, req.Multiplier)
	require.Equal(t, "Sony", req.Metadata.Make)
	require.NotEmpty(t, req.Image)

	o.variant = "polaroid"
	_, err = o.request(path)
	require.ErrorIs(t, err, model.ErrIncorrectVariant)
}

func TestRenderDir(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	writeJPEG(t, filepath.Join(in, "one.jpg"), 64, 48)
	writeJPEG(t, filepath.Join(in, "two.jpg"), 48, 64)

	o := &renderOptions{logoDir: t.TempDir(), variant: "strip"}
	r, err := o.renderer()
	require.NoError(t, err)

	require.NoError(t, renderDir(context.Background(), r, o, in, out, 2))

	for _, name := range []string{"one.png", "two.png"} {
		img, err := imaging.Open(filepath.Join(out, name))
		require.NoError(t, err)
		require.NotZero(t, img.Bounds().Dx())
	}
}

func TestRenderDir_ReportsFailures(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.jpg"), []byte("not an image"), 0o644))

	o := &renderOptions{logoDir: t.TempDir(), variant: "strip"}
	r, err := o.renderer()
	require.NoError(t, err)

	err = renderDir(context.Background(), r, o, in, t.TempDir(), 1)
	require.ErrorContains(t, err, "1 of 1 renders failed")
}

func TestPrintLogos(t *testing.T) {
	var buf bytes.Buffer
	printLogos(&buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "canon"))
}
