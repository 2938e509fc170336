package tools

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/UnendingLoop/DocMint/internal/imageproc"
	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/pdfops"
	"github.com/gabriel-vasile/mimetype"
)

// подбор качества под целевой размер PDF
const (
	pdfMaxAttempts    = 6
	pdfStartQuality   = 0.9
	pdfQualityFloor   = 0.3
	pdfQualityDown    = 0.15
	pdfQualityUp      = 0.05
	pdfTargetAccuracy = 0.05
)

// pdfPage is one laid-out page. PNG sources stay lossless and are encoded once.
type pdfPage struct {
	img image.Image
	png []byte
}

func (p *Processor) imagesToPDF(params model.Params, sources []Source) (*model.Output, error) {
	paper := params.Paper
	if paper == "" {
		paper = model.PaperA4
	}
	fit := params.FitMode
	if fit == "" {
		fit = model.FitContain
	}
	margin := float64(max(params.Margin, 0))

	var notes []string
	pages := make([]pdfPage, 0, len(sources))
	for _, src := range sources {
		page, err := preparePage(src, paper, fit, margin)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: skipped, %v", src.Name, err))
			continue
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrNothingProcessed, notes)
	}

	target := params.TargetBytes
	quality := pdfStartQuality
	var (
		pdf     []byte
		reached bool
	)
	for attempt := 0; attempt < pdfMaxAttempts; attempt++ {
		encoded, err := encodePages(pages, quality)
		if err != nil {
			return nil, err
		}
		pdf, err = pdfops.ImportImages(encoded, paper)
		if err != nil {
			return nil, err
		}
		if target <= 0 {
			break
		}

		diff := float64(int64(len(pdf)) - target)
		if math.Abs(diff) <= float64(target)*pdfTargetAccuracy {
			reached = true
			break
		}
		if diff > 0 {
			quality = math.Max(pdfQualityFloor, quality-pdfQualityDown)
		} else {
			quality = math.Min(1, quality+pdfQualityUp)
		}
	}
	if target > 0 && !reached {
		notes = append(notes, fmt.Sprintf("target of %d bytes not reached, result is %d bytes", target, len(pdf)))
	}

	return &model.Output{
		Name:        fmt.Sprintf("Images_%d.pdf", p.stamp()),
		ContentType: model.PDF,
		Data:        pdf,
		Notes:       notes,
	}, nil
}

func preparePage(src Source, paper model.Paper, fit model.FitMode, margin float64) (pdfPage, error) {
	img, err := imageproc.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return pdfPage{}, err
	}
	if size, ok := model.PaperSizes[paper]; ok {
		img = imageproc.LayoutPage(img, size[0], size[1], fit, margin)
	}

	if !mimetype.Detect(src.Data).Is(model.PNG) {
		return pdfPage{img: imageproc.NewSurface(img).Image()}, nil
	}
	data, err := imageproc.EncodePNG(img)
	if err != nil {
		return pdfPage{}, err
	}
	return pdfPage{png: data}, nil
}

func encodePages(pages []pdfPage, quality float64) ([][]byte, error) {
	out := make([][]byte, 0, len(pages))
	for i, pg := range pages {
		if pg.png != nil {
			out = append(out, pg.png)
			continue
		}
		data, err := imageproc.EncodeJPEG(pg.img, quality)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, data)
	}
	return out, nil
}
