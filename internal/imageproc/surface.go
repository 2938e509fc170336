package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/UnendingLoop/DocMint/internal/compress"
	"github.com/disintegration/imaging"
)

// Surface is an opaque raster that satisfies compress.Surface.
type Surface struct {
	img *image.NRGBA
}

var _ compress.Surface = (*Surface)(nil)

// NewSurface flattens img onto white so transparent areas don't turn black in JPEG.
func NewSurface(img image.Image) *Surface {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return &Surface{img: imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)}
}

func (s *Surface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Surface) Encode(quality float64) ([]byte, error) {
	return EncodeJPEG(s.img, quality)
}

func (s *Surface) Resample(w, h int) (compress.Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("resample to %dx%d: non-positive size", w, h)
	}
	return &Surface{img: imaging.Resize(s.img, w, h, imaging.Lanczos)}, nil
}

func (s *Surface) Image() image.Image {
	return s.img
}

// EncodeJPEG encodes img with quality given as a fraction in [0,1].
func EncodeJPEG(img image.Image, quality float64) ([]byte, error) {
	q := min(max(int(math.Round(quality*100)), 1), 100)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return nil, fmt.Errorf("failed to ENcode JPEG at quality %d: %w", q, err)
	}
	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to ENcode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
