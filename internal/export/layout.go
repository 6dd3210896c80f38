package export

import (
	"fmt"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
)

// A4 portrait page size in millimetres.
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// Placement is where the raster goes on the single PDF page.
type Placement struct {
	X, Y     float64
	WidthMM  float64
	HeightMM float64
	// Scaled is set when the raster was taller than the page and was shrunk
	// to fit it.
	Scaled bool
}

// PlaceOnPage fits a w×h pixel raster to the page width, keeping its aspect
// ratio. A raster that would overflow the page height is scaled down to the
// page height and centered horizontally instead.
func PlaceOnPage(w, h int) (Placement, error) {
	if w <= 0 || h <= 0 {
		return Placement{}, fmt.Errorf("raster %dx%d: %w", w, h, domerrors.ErrInvalidInput)
	}

	height := PageWidthMM * float64(h) / float64(w)
	if height <= PageHeightMM {
		return Placement{WidthMM: PageWidthMM, HeightMM: height}, nil
	}

	width := PageHeightMM * float64(w) / float64(h)
	return Placement{
		X:        (PageWidthMM - width) / 2,
		WidthMM:  width,
		HeightMM: PageHeightMM,
		Scaled:   true,
	}, nil
}
