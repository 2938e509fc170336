// Package pdfops wraps pdfcpu (structure: merge, page selection, image import) and
// go-fitz (page rendering) behind byte-slice in, byte-slice out helpers.
package pdfops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// pdfcpu не должен лезть в ~/.config за своим конфигом
	pdfmodel.ConfigPath = "disable"
}

func newConf() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

func PageCount(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		return 0, errors.New("empty PDF provided")
	}
	n, err := api.PageCount(bytes.NewReader(pdf), newConf())
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	return n, nil
}

// Merge concatenates all pages of docs in order.
func Merge(docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, errors.New("no PDFs to merge")
	}
	if len(docs) == 1 {
		return docs[0], nil
	}

	rsc := make([]io.ReadSeeker, 0, len(docs))
	for _, d := range docs {
		rsc = append(rsc, bytes.NewReader(d))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(rsc, &out, false, newConf()); err != nil {
		return nil, fmt.Errorf("failed to merge PDFs: %w", err)
	}
	return out.Bytes(), nil
}

// Collect builds a new PDF from the 1-based pages in order; repeats are allowed and
// pages not listed are dropped.
func Collect(pdf []byte, order []int) ([]byte, error) {
	if len(order) == 0 {
		return nil, errors.New("empty page order")
	}

	sel := make([]string, 0, len(order))
	for _, p := range order {
		sel = append(sel, strconv.Itoa(p))
	}

	var out bytes.Buffer
	if err := api.Collect(bytes.NewReader(pdf), &out, sel, newConf()); err != nil {
		return nil, fmt.Errorf("failed to collect pages %v: %w", order, err)
	}
	return out.Bytes(), nil
}

// ImportImages creates a PDF with one page per encoded image. For a fixed paper the
// images are expected to be laid out with the page's aspect ratio already; for
// PaperAuto every page takes its image's dimensions.
func ImportImages(images [][]byte, paper model.Paper) ([]byte, error) {
	if len(images) == 0 {
		return nil, errors.New("no images to import")
	}

	desc := "pos:full"
	if _, ok := model.PaperSizes[paper]; ok {
		desc = fmt.Sprintf("f:%s, pos:c, sc:1.0 rel", paper)
	}
	imp, err := api.Import(desc, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build import config %q: %w", desc, err)
	}

	readers := make([]io.Reader, 0, len(images))
	for _, img := range images {
		readers = append(readers, bytes.NewReader(img))
	}

	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, imp, newConf()); err != nil {
		return nil, fmt.Errorf("failed to import images into PDF: %w", err)
	}
	return out.Bytes(), nil
}
