package tools

import (
	"context"
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/archive"
	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/pdfops"
	"github.com/UnendingLoop/DocMint/internal/runner"
)

const (
	renderWidth   = 2400
	renderQuality = 1.0
)

// Границы параллельного рендера страниц pdf_to_jpg
const (
	DefaultRenderConcurrency = 2
	MaxRenderConcurrency     = 4
)

// RenderConcurrency clamps a requested page concurrency; zero or less means the default.
func RenderConcurrency(n int) int {
	if n <= 0 {
		return DefaultRenderConcurrency
	}
	return min(n, MaxRenderConcurrency)
}

func (p *Processor) pdfToJPG(ctx context.Context, params model.Params, src Source) (*model.Output, error) {
	r, err := pdfops.NewRenderer(src.Data)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	total := r.NumPages()
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", model.ErrNothingProcessed)
	}
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}

	base := baseName(src.Name)
	results, err := runner.RunAll(ctx, pages, RenderConcurrency(params.Concurrency),
		func(_ context.Context, page int, _ int) (archive.File, error) {
			data, err := r.RenderJPEG(page, renderWidth, renderQuality)
			if err != nil {
				metrics.IncPageRendered("failed")
				return archive.File{}, err
			}
			metrics.IncPageRendered("ok")
			return archive.File{Name: fmt.Sprintf("%s_%d.jpg", base, page), Data: data}, nil
		})
	if err != nil {
		return nil, err
	}

	runner.SortByIndex(results)
	var notes []string
	for _, res := range results {
		if res.Err != nil {
			notes = append(notes, fmt.Sprintf("page %d: %v", pages[res.Index], res.Err))
		}
	}

	files := runner.Succeeded(results)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrNothingProcessed, notes)
	}

	zipped, err := archive.Bundle(files)
	if err != nil {
		return nil, err
	}
	return &model.Output{
		Name:        base + "_jpg.zip",
		ContentType: model.ZIP,
		Data:        zipped,
		Notes:       notes,
	}, nil
}
