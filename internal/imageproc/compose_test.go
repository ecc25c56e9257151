package imageproc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"

	"github.com/UnendingLoop/ExifFrame/internal/fonts"
	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/UnendingLoop/ExifFrame/internal/scene"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) image.Image {
	return imaging.New(w, h, c)
}

func testScene(naturalW int) *scene.Scene {
	photo := solid(naturalW, naturalW/2, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	scale := 100 / float64(naturalW)

	left := scene.NewGroup("left-info",
		scene.NewText(scene.TextRun{Content: "EOS", FontFamily: "Arial", FontSizePx: 16, Color: "#333", Bold: true}, 30, 18),
	)
	left.Left, left.Top = 12, 20

	lg := scene.NewGroup("logo", scene.NewImage(scene.ImageRef{
		Handle: "logo", Asset: solid(40, 40, color.NRGBA{B: 255, A: 255}), Scale: 0.25,
	}))
	lg.Left, lg.Top = 45, 25

	return &scene.Scene{
		Main: scene.Layer{
			Width: 100, Height: 50, Visible: true,
			Base: []scene.Element{scene.NewImage(scene.ImageRef{Handle: "photo", Asset: photo, Scale: scale})},
		},
		Strip: scene.Layer{
			Width: 100, Height: 60, Visible: true, Background: "#fff",
			Groups: []scene.Group{left, lg},
		},
		PrimaryNaturalWidth: float64(naturalW),
	}
}

func newCompositor(t *testing.T) *Compositor {
	t.Helper()
	book, err := fonts.NewBook("")
	require.NoError(t, err)
	return NewCompositor(book)
}

func TestFlatten(t *testing.T) {
	sc := testScene(200)
	f := Flatten(sc)

	require.Equal(t, 100.0, f.Width)
	require.Equal(t, 110.0, f.Height)
	require.Len(t, f.Fills, 1)
	require.Equal(t, 50.0, f.Fills[0].Top)

	require.Len(t, f.Elements, 3)
	require.Equal(t, "photo", f.Elements[0].Image.Handle)
	require.Equal(t, "EOS", f.Elements[1].Text.Content)
	require.Equal(t, 12.0, f.Elements[1].Left)
	require.Equal(t, 70.0, f.Elements[1].Top)
	require.Equal(t, 45.0, f.Elements[2].Left)
	require.Equal(t, 75.0, f.Elements[2].Top)

	// source scene untouched
	require.Equal(t, 0.0, sc.Strip.Groups[0].Elements[0].Top)
}

func TestFlatten_HiddenStrip(t *testing.T) {
	sc := testScene(200)
	sc.Strip.Visible = false

	f := Flatten(sc)
	require.Equal(t, 50.0, f.Height)
	require.Empty(t, f.Fills)
	require.Len(t, f.Elements, 1)
}

func TestDefaultMultiplier(t *testing.T) {
	tests := []struct {
		width float64
		want  float64
	}{
		{width: 2400, want: 2},
		{width: 800, want: 1},
		{width: 1200, want: 1},
		{width: 6000, want: 5},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, DefaultMultiplier(&scene.Scene{PrimaryNaturalWidth: tt.width}))
	}
}

func TestDefaultMultiplier_PanoramaStaysUnderCap(t *testing.T) {
	sc := &scene.Scene{
		Main:                scene.Layer{Width: 1200, Height: 0.48, Visible: true},
		Strip:               scene.Layer{Width: 1200, Height: 60, Visible: true},
		PrimaryNaturalWidth: 250000,
	}

	m := DefaultMultiplier(sc)
	require.Less(t, m, 250000.0/1200)

	w, h := px(1200, m), px(60.48, m)
	require.LessOrEqual(t, w*h, MaxPixels)

	// a regular photo keeps its native width
	sc.Main.Height, sc.PrimaryNaturalWidth = 800, 6000
	require.Equal(t, 5.0, DefaultMultiplier(sc))
}

func TestExport_Deterministic(t *testing.T) {
	c := newCompositor(t)

	a, err := c.Export(testScene(400), ExportOptions{Multiplier: 1.5})
	require.NoError(t, err)
	b, err := c.Export(testScene(400), ExportOptions{Multiplier: 1.5})
	require.NoError(t, err)

	require.Equal(t, model.PNG, a.ContentType)
	require.True(t, bytes.Equal(a.Data, b.Data))
	require.Equal(t, 150, a.Width)
	require.Equal(t, 165, a.Height)
}

func TestExport_DefaultMultiplier(t *testing.T) {
	c := newCompositor(t)

	enc, err := c.Export(testScene(2400), ExportOptions{})
	require.NoError(t, err)
	require.Equal(t, 2.0, enc.Multiplier)
	require.Equal(t, 200, enc.Width)
	require.Equal(t, 220, enc.Height)

	img, err := Decode(bytes.NewReader(enc.Data), "result")
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 200, 220), img.Bounds())

	// photo on top, white strip below, blue logo in the strip
	requireNear(t, color.NRGBA{R: 200, G: 10, B: 10, A: 255}, img.At(50, 50))
	requireNear(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(195, 215))
	requireNear(t, color.NRGBA{B: 255, A: 255}, img.At(100, 160))
}

func TestExport_InvalidMultiplier(t *testing.T) {
	c := newCompositor(t)

	for _, m := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := c.Export(testScene(200), ExportOptions{Multiplier: m})
		require.ErrorIs(t, err, ErrInvalidMultiplier)
	}
}

func TestExport_EncodingErrors(t *testing.T) {
	c := newCompositor(t)

	sc := testScene(200)
	sc.Strip.Background = "not-a-color"
	_, err := c.Export(sc, ExportOptions{Multiplier: 1})
	require.ErrorIs(t, err, model.ErrEncoding)

	empty := &scene.Scene{}
	_, err = c.Export(empty, ExportOptions{Multiplier: 1})
	require.ErrorIs(t, err, model.ErrEncoding)

	huge := testScene(200)
	huge.Main.Width, huge.Main.Height = 20000, 20000
	_, err = c.Export(huge, ExportOptions{Multiplier: 1})
	require.ErrorIs(t, err, model.ErrEncoding)
}

func TestExport_BlurAndShadow(t *testing.T) {
	c := newCompositor(t)
	photo := solid(80, 40, color.NRGBA{G: 200, A: 255})

	fg := scene.NewImage(scene.ImageRef{
		Handle: "foreground", Asset: photo, Scale: 0.9,
		Shadow: &scene.Shadow{Color: "#000000cc", Blur: 20},
	}).At(4, 2)

	sc := &scene.Scene{
		Main: scene.Layer{
			Width: 80, Height: 40, Visible: true,
			Base: []scene.Element{
				scene.NewImage(scene.ImageRef{Handle: "background", Asset: photo, Scale: 1, Blur: 0.5}),
				fg,
			},
		},
		PrimaryNaturalWidth: 80,
	}

	a, err := c.Export(sc, ExportOptions{Multiplier: 1})
	require.NoError(t, err)
	b, err := c.Export(sc, ExportOptions{Multiplier: 1})
	require.NoError(t, err)
	require.Equal(t, a.Data, b.Data)
	require.Equal(t, 80, a.Width)
	require.Equal(t, 40, a.Height)
}

type nopDrawer struct{ calls int }

func (d *nopDrawer) Draw(draw.Image, scene.TextRun, float64, float64, float64) error {
	d.calls++
	return nil
}

func TestRasterize_SkipsEmptyText(t *testing.T) {
	d := &nopDrawer{}
	c := NewCompositor(d)

	f := Flat{Width: 10, Height: 10, Elements: []scene.Element{
		scene.NewText(scene.TextRun{Content: ""}, 0, 10),
		scene.NewText(scene.TextRun{Content: "x"}, 5, 10),
	}}
	_, err := c.Rasterize(f, 1)
	require.NoError(t, err)
	require.Equal(t, 1, d.calls)
}

func TestDecode(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not-an-image")), "broken.jpg")
	require.ErrorIs(t, err, model.ErrImageLoad)

	var loadErr *model.ImageLoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "broken.jpg", loadErr.Source)

	_, err = Decode(nil, "nil")
	require.ErrorIs(t, err, model.ErrImageLoad)

	_, err = DecodeBytes(nil, "empty")
	require.ErrorIs(t, err, model.ErrImageLoad)
}

// pngHeader is a PNG signature and IHDR chunk declaring w x h with no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6 // 8-bit RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecode_RejectsOversizedSource(t *testing.T) {
	_, err := DecodeBytes(pngHeader(30000, 30000), "bomb.png")
	require.ErrorIs(t, err, model.ErrImageLoad)
	require.ErrorContains(t, err, "exceeds")

	// a header within the limit gets past the size check and fails on missing data
	_, err = DecodeBytes(pngHeader(100, 100), "truncated.png")
	require.ErrorIs(t, err, model.ErrImageLoad)
	require.NotContains(t, err.Error(), "exceeds")
}

func TestDecode_Formats(t *testing.T) {
	for _, f := range []imaging.Format{imaging.JPEG, imaging.PNG, imaging.GIF, imaging.TIFF} {
		var buf bytes.Buffer
		require.NoError(t, imaging.Encode(&buf, solid(40, 30, color.NRGBA{G: 255, A: 255}), f))

		img, err := DecodeBytes(buf.Bytes(), "src")
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	}
}

func TestDetectFormat(t *testing.T) {
	for _, f := range []imaging.Format{imaging.JPEG, imaging.PNG, imaging.GIF, imaging.TIFF} {
		var buf bytes.Buffer
		require.NoError(t, imaging.Encode(&buf, solid(4, 4, color.NRGBA{A: 255}), f))

		ct, err := DetectFormat(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, model.GetCType[f], ct)
	}

	_, err := DetectFormat([]byte("nope"))
	require.ErrorIs(t, err, model.ErrImageLoad)
}

func requireNear(t *testing.T, want color.NRGBA, got color.Color) {
	t.Helper()
	g := color.NRGBAModel.Convert(got).(color.NRGBA)
	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			d = -d
		}
		return d
	}
	require.LessOrEqual(t, diff(want.R, g.R), 3, "red: want %v got %v", want, g)
	require.LessOrEqual(t, diff(want.G, g.G), 3, "green: want %v got %v", want, g)
	require.LessOrEqual(t, diff(want.B, g.B), 3, "blue: want %v got %v", want, g)
	require.LessOrEqual(t, diff(want.A, g.A), 3, "alpha: want %v got %v", want, g)
}
