package pdf

import (
	"errors"
	"math"
)

// Calibration values of the page geometry. PixelToMM is the 96 dpi screen
// density in millimetres per pixel. ImageScale was calibrated by rendering
// images placed at PlacementDPI until they filled their page; it is tied to
// that placement density and must be recalibrated if the PDF backend or
// PlacementDPI changes.
const (
	PixelToMM    = 0.2645833
	PlacementDPI = 300.0
	ImageScale   = 3.125

	mmPerInch = 25.4
)

// Geometry holds the pixel to page conversion used for every page
type Geometry struct {
	PixelToMM    float64
	PlacementDPI float64
	ImageScale   float64
}

// DefaultGeometry returns the calibrated defaults
func DefaultGeometry() Geometry {
	return Geometry{
		PixelToMM:    PixelToMM,
		PlacementDPI: PlacementDPI,
		ImageScale:   ImageScale,
	}
}

// Validate rejects non-positive or non-finite values
func (g Geometry) Validate() error {
	for _, v := range []float64{g.PixelToMM, g.PlacementDPI, g.ImageScale} {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return errors.New("geometry values must be positive and finite")
		}
	}
	return nil
}

// PageSize returns the page width and height in millimetres
func (g Geometry) PageSize(widthPx, heightPx int) (float64, float64) {
	return float64(widthPx) * g.PixelToMM, float64(heightPx) * g.PixelToMM
}

// DrawSize returns the placed image width and height in millimetres
func (g Geometry) DrawSize(widthPx, heightPx int) (float64, float64) {
	unit := mmPerInch / g.PlacementDPI * g.ImageScale
	return float64(widthPx) * unit, float64(heightPx) * unit
}
