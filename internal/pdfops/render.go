package pdfops

import (
	"errors"
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/imageproc"
	"github.com/gen2brain/go-fitz"
)

// Renderer rasterizes pages of one document. go-fitz serializes access to the
// document internally, so a Renderer may be shared by concurrent workers.
type Renderer struct {
	doc *fitz.Document
}

func NewRenderer(pdf []byte) (*Renderer, error) {
	if len(pdf) == 0 {
		return nil, errors.New("empty PDF provided to renderer")
	}
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Renderer{doc: doc}, nil
}

func (r *Renderer) NumPages() int {
	return r.doc.NumPage()
}

// RenderJPEG renders the 1-based page so that its width is width pixels.
func (r *Renderer) RenderJPEG(page, width int, quality float64) ([]byte, error) {
	if page < 1 || page > r.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page, r.doc.NumPage())
	}

	// go-fitz uses 0-based indexing, bounds are in points at 72 DPI
	bound, err := r.doc.Bound(page - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read bounds of page %d: %w", page, err)
	}
	if bound.Dx() <= 0 {
		return nil, fmt.Errorf("page %d has empty bounds", page)
	}
	dpi := float64(width) * 72 / float64(bound.Dx())

	img, err := r.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	return imageproc.EncodeJPEG(img, quality)
}

func (r *Renderer) Close() error {
	return r.doc.Close()
}
