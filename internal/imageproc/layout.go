package imageproc

import (
	"image"
	"image/color"
	"math"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/disintegration/imaging"
)

// не раздуваем холст сильнее чем в 4 пикселя на пункт
const maxPixelsPerPoint = 4.0

// LayoutPage draws img centered on a white canvas with the page's aspect ratio.
// pageW, pageH and margin are in points. The canvas density follows the source so
// the image is not upsampled more than needed.
func LayoutPage(img image.Image, pageW, pageH float64, fit model.FitMode, margin float64) *image.NRGBA {
	iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	availW, availH := math.Max(pageW-2*margin, 1), math.Max(pageH-2*margin, 1)

	dw, dh := iw, ih
	switch fit {
	case model.FitStretch:
		dw, dh = availW, availH
	case model.FitOriginal:
	default:
		s := math.Min(availW/iw, availH/ih)
		dw, dh = iw*s, ih*s
	}

	ppp := math.Min(math.Max(math.Max(iw/dw, ih/dh), 1), maxPixelsPerPoint)

	canvasW := max(int(math.Round(pageW*ppp)), 1)
	canvasH := max(int(math.Round(pageH*ppp)), 1)
	drawW := max(int(math.Round(dw*ppp)), 1)
	drawH := max(int(math.Round(dh*ppp)), 1)

	canvas := imaging.New(canvasW, canvasH, color.White)
	placed := imaging.Resize(img, drawW, drawH, imaging.Lanczos)

	// в режиме original картинка может вылезать за лист - лишнее обрезается
	offset := image.Pt((canvasW-drawW)/2, (canvasH-drawH)/2)
	return imaging.Overlay(canvas, placed, offset, 1.0)
}
