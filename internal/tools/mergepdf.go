package tools

import (
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/pdfops"
)

func (p *Processor) mergePDFs(sources []Source) (*model.Output, error) {
	var notes []string
	docs := make([][]byte, 0, len(sources))
	for _, src := range sources {
		if _, err := pdfops.PageCount(src.Data); err != nil {
			notes = append(notes, fmt.Sprintf("%s: skipped, %v", src.Name, err))
			continue
		}
		docs = append(docs, src.Data)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrNothingProcessed, notes)
	}

	merged, err := pdfops.Merge(docs)
	if err != nil {
		return nil, err
	}
	return &model.Output{
		Name:        fmt.Sprintf("Merged_%d.pdf", p.stamp()),
		ContentType: model.PDF,
		Data:        merged,
		Notes:       notes,
	}, nil
}
