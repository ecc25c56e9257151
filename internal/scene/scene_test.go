package scene

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroup_BoundingBox(t *testing.T) {
	g := NewGroup("left",
		NewText(TextRun{Content: "EOS R5"}, 70, 22),
		NewText(TextRun{Content: "RF24-70mm"}, 95, 18).At(0, 30),
	)

	require.Equal(t, 95.0, g.Width)
	require.Equal(t, 48.0, g.Height)

	g.Add(NewText(TextRun{Content: "x"}, 10, 10).At(100, 0))
	require.Equal(t, 110.0, g.Width)
	require.Equal(t, 48.0, g.Height)
}

func TestNewImage_UsesScale(t *testing.T) {
	asset := image.NewNRGBA(image.Rect(0, 0, 400, 200))
	e := NewImage(ImageRef{Handle: "logo", Asset: asset, Scale: 0.15})

	require.Equal(t, KindImage, e.Kind)
	require.InDelta(t, 60.0, e.Width, 1e-9)
	require.InDelta(t, 30.0, e.Height, 1e-9)
	require.Equal(t, 400.0, e.Image.NaturalWidth())
}

func TestScene_CloneIsIndependent(t *testing.T) {
	s := &Scene{
		Main: Layer{
			Width: 100, Height: 80, Visible: true,
			Base:   []Element{NewImage(ImageRef{Shadow: &Shadow{Color: "#000000cc", Blur: 10}})},
			Groups: []Group{NewGroup("logo", NewText(TextRun{Content: "a"}, 5, 5))},
		},
		Strip: Layer{Width: 100, Height: 60, Visible: true},
	}

	c := s.Clone()
	c.Main.Groups[0].Elements[0].Left = 50
	c.Main.Base[0].Image.Shadow.Blur = 1

	require.Equal(t, 0.0, s.Main.Groups[0].Elements[0].Left)
	require.Equal(t, 10.0, s.Main.Base[0].Image.Shadow.Blur)
	require.Equal(t, 1, c.GroupCount())
}

func TestScene_GroupCountSkipsHiddenStrip(t *testing.T) {
	s := &Scene{
		Main:  Layer{Groups: []Group{{}}},
		Strip: Layer{Visible: false, Groups: []Group{{}, {}}},
	}
	require.Equal(t, 1, s.GroupCount())

	s.Strip.Visible = true
	require.Equal(t, 3, s.GroupCount())
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#fff", want: color.NRGBA{255, 255, 255, 255}},
		{in: "#333333", want: color.NRGBA{0x33, 0x33, 0x33, 255}},
		{in: "#000000cc", want: color.NRGBA{0, 0, 0, 0xcc}},
		{in: "666", want: color.NRGBA{0x66, 0x66, 0x66, 255}},
		{in: "#12", wantErr: true},
		{in: "#gggggg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
