// Package imageproc provides raster operations for the tools: decoding, unit-aware scaling,
// page layout and lossy re-encoding.
package imageproc

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/disintegration/imaging"
)

// CSS reference pixels per unit at 96 DPI
const (
	pxPerMM = 3.7795
	pxPerCM = 37.795
)

func Decode(r io.Reader) (image.Image, error) {
	if r == nil {
		return nil, errors.New("nil-reader provided to Decode")
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ToPixels converts a length in unit to pixels; unknown units are treated as pixels.
func ToPixels(v float64, unit model.Unit) float64 {
	if v <= 0 {
		return 0
	}
	switch unit {
	case model.UnitMM:
		return v * pxPerMM
	case model.UnitCM:
		return v * pxPerCM
	default:
		return v
	}
}

// ScaledSize resolves requested dimensions against the source: both given - exact size,
// one given - the other follows the aspect ratio, none - source size. Results are floored.
func ScaledSize(srcW, srcH int, w, h float64) (int, int) {
	newW, newH := float64(srcW), float64(srcH)
	switch {
	case w > 0 && h > 0:
		newW, newH = w, h
	case w > 0:
		newW, newH = w, float64(srcH)/float64(srcW)*w
	case h > 0:
		newW, newH = float64(srcW)/float64(srcH)*h, h
	}
	return max(int(math.Floor(newW)), 1), max(int(math.Floor(newH)), 1)
}

// DrawScaled returns img resampled to the size ScaledSize resolves; the source is not modified.
func DrawScaled(img image.Image, w, h float64) image.Image {
	b := img.Bounds()
	newW, newH := ScaledSize(b.Dx(), b.Dy(), w, h)
	if newW == b.Dx() && newH == b.Dy() {
		return img
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}
