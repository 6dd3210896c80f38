package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOnPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		w, h       int
		wantWidth  float64
		wantHeight float64
		wantX      float64
		wantScaled bool
	}{
		{name: "900x1200", w: 900, h: 1200, wantWidth: 210, wantHeight: 280},
		{name: "same aspect at ratio 3", w: 2700, h: 3600, wantWidth: 210, wantHeight: 280},
		{name: "exactly one page", w: 210, h: 297, wantWidth: 210, wantHeight: 297},
		{name: "short", w: 900, h: 450, wantWidth: 210, wantHeight: 105},
		{name: "overflow scales to fit", w: 900, h: 1400, wantWidth: 297 * 900.0 / 1400, wantHeight: 297, wantX: (210 - 297*900.0/1400) / 2, wantScaled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := PlaceOnPage(tt.w, tt.h)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantWidth, p.WidthMM, 1e-9)
			assert.InDelta(t, tt.wantHeight, p.HeightMM, 1e-9)
			assert.InDelta(t, tt.wantX, p.X, 1e-9)
			assert.Zero(t, p.Y)
			assert.Equal(t, tt.wantScaled, p.Scaled)
			assert.LessOrEqual(t, p.HeightMM, PageHeightMM)
		})
	}
}

func TestPlaceOnPage_Invalid(t *testing.T) {
	t.Parallel()

	for _, dims := range [][2]int{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := PlaceOnPage(dims[0], dims[1])
		assert.Error(t, err, "%v", dims)
	}
}
