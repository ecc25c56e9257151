package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	box := Dimensions{Width: MaxWidth, Height: MaxHeight}

	tests := []struct {
		name    string
		natural Dimensions
		want    ScaleFactor
		wantErr bool
	}{
		{name: "wide landscape", natural: Dimensions{4000, 3000}, want: 0.27},
		{name: "width bound", natural: Dimensions{2400, 800}, want: 0.5},
		{name: "portrait", natural: Dimensions{3000, 4000}, want: 0.2},
		{name: "already fits", natural: Dimensions{1000, 500}, want: 1},
		{name: "exact box", natural: Dimensions{1200, 800}, want: 1},
		{name: "panorama below rounding", natural: Dimensions{250000, 100}, want: 0.0048},
		{name: "tall strip below rounding", natural: Dimensions{10, 200000}, want: 0.004},
		{name: "zero width", natural: Dimensions{0, 500}, wantErr: true},
		{name: "negative height", natural: Dimensions{500, -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fit(tt.natural, box)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNonPositive)
				return
			}
			require.NoError(t, err)
			require.InDelta(t, float64(tt.want), float64(got), 1e-9)
		})
	}
}

func TestFit_ScaledStaysNearBox(t *testing.T) {
	box := Dimensions{Width: MaxWidth, Height: MaxHeight}

	for _, n := range []Dimensions{{4000, 3000}, {6000, 4000}, {3024, 4032}, {1201, 801}, {5472, 3648}} {
		s, err := Fit(n, box)
		require.NoError(t, err)

		// two-decimal rounding moves each axis by at most half a hundredth of its natural size
		out := Scaled(n, s)
		require.LessOrEqual(t, out.Width, box.Width+n.Width*0.005)
		require.LessOrEqual(t, out.Height, box.Height+n.Height*0.005)
	}
}

func TestFit_BoxInputsValidated(t *testing.T) {
	_, err := Fit(Dimensions{100, 100}, Dimensions{0, 800})
	require.ErrorIs(t, err, ErrNonPositive)
}
