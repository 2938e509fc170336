package tools

import (
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/pdfops"
)

// organizePDF rebuilds the document from order (1-based, repeats allowed).
// An empty order keeps every page as is.
func (p *Processor) organizePDF(params model.Params, src Source) (*model.Output, error) {
	total, err := pdfops.PageCount(src.Data)
	if err != nil {
		return nil, err
	}

	order := params.Order
	if len(order) == 0 {
		order = make([]int, total)
		for i := range order {
			order[i] = i + 1
		}
	}
	for _, page := range order {
		if page < 1 || page > total {
			return nil, fmt.Errorf("%w: page %d, document has %d", model.ErrIncorrectOrder, page, total)
		}
	}

	out, err := pdfops.Collect(src.Data, order)
	if err != nil {
		return nil, err
	}
	return &model.Output{
		Name:        fmt.Sprintf("Organized_%d.pdf", p.stamp()),
		ContentType: model.PDF,
		Data:        out,
	}, nil
}
