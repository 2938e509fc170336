// Package tools implements the DocMint document tools. Each run gets its own sources and
// parameters; nothing is shared between runs.
package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/gabriel-vasile/mimetype"
)

// Source - входной файл задачи, уже вычитанный из хранилища
type Source struct {
	Name string
	Data []byte
}

type Processor struct {
	now func() time.Time
}

func NewProcessor() *Processor {
	return &Processor{now: time.Now}
}

// Run executes job.Tool over sources. Degraded outcomes (budget missed, skipped files)
// are reported in Output.Notes; an error means nothing usable was produced.
func (p *Processor) Run(ctx context.Context, job *model.Job, sources []Source) (*model.Output, error) {
	if job == nil {
		return nil, fmt.Errorf("nil job provided to processor")
	}
	if len(sources) == 0 {
		return nil, model.ErrEmptySource
	}

	switch job.Tool {
	case model.ToolCompress:
		return p.compressImages(job.Params, sources)
	case model.ToolImagesToPDF:
		return p.imagesToPDF(job.Params, sources)
	case model.ToolMergePDF:
		return p.mergePDFs(sources)
	case model.ToolOrganizePDF:
		return p.organizePDF(job.Params, sources[0])
	case model.ToolPDFToJPG:
		return p.pdfToJPG(ctx, job.Params, sources[0])
	default:
		return nil, model.ErrIncorrectTool
	}
}

func (p *Processor) stamp() int64 {
	return p.now().UnixMilli()
}

// baseName strips the extension: "scan.PDF" -> "scan"
func baseName(name string) string {
	name = filepath.Base(name)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." || name == "/" {
		return "page"
	}
	return name
}

func contentTypeOf(data []byte) string {
	return mimetype.Detect(data).String()
}
