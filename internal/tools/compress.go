package tools

import (
	"bytes"
	"fmt"

	"github.com/UnendingLoop/DocMint/internal/archive"
	"github.com/UnendingLoop/DocMint/internal/compress"
	"github.com/UnendingLoop/DocMint/internal/imageproc"
	"github.com/UnendingLoop/DocMint/internal/metrics"
	"github.com/UnendingLoop/DocMint/internal/model"
)

// качество по умолчанию, если целевой размер не задан
const defaultJPEGQuality = 0.8

func (p *Processor) compressImages(params model.Params, sources []Source) (*model.Output, error) {
	w := imageproc.ToPixels(params.Width, params.WidthUnit)
	h := imageproc.ToPixels(params.Height, params.HeightUnit)

	files := make([]archive.File, 0, len(sources))
	var notes []string
	for _, src := range sources {
		file, note, err := compressOne(src, w, h, params.TargetBytes)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: skipped, %v", src.Name, err))
			continue
		}
		if note != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", src.Name, note))
		}
		files = append(files, file)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", model.ErrNothingProcessed, notes)
	}

	if len(files) == 1 {
		return &model.Output{
			Name:        files[0].Name,
			ContentType: contentTypeOf(files[0].Data),
			Data:        files[0].Data,
			Notes:       notes,
		}, nil
	}

	zipped, err := archive.Bundle(files)
	if err != nil {
		return nil, err
	}
	return &model.Output{
		Name:        fmt.Sprintf("Compressed_%d.zip", p.stamp()),
		ContentType: model.ZIP,
		Data:        zipped,
		Notes:       notes,
	}, nil
}

// compressOne returns the processed file and an optional note about a degraded result.
func compressOne(src Source, w, h float64, target int64) (archive.File, string, error) {
	base := baseName(src.Name)

	if target > 0 && compress.WithinTolerance(int64(len(src.Data)), target) {
		ext := model.GetFileExt[contentTypeOf(src.Data)]
		if ext == "" {
			ext = ".jpg"
		}
		return archive.File{Name: base + ext, Data: src.Data}, "already smaller than target, kept original", nil
	}

	img, err := imageproc.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return archive.File{}, "", err
	}
	surface := imageproc.NewSurface(imageproc.DrawScaled(img, w, h))
	name := base + ".jpg"

	if target <= 0 {
		data, err := surface.Encode(defaultJPEGQuality)
		if err != nil {
			return archive.File{}, "", err
		}
		return archive.File{Name: name, Data: data}, "", nil
	}

	res, err := compress.CompressToBudget(surface, target)
	if err != nil {
		return archive.File{}, "", err
	}
	metrics.ObserveCompression(res.Attempts, res.Reached)

	var note string
	if !res.Reached {
		note = fmt.Sprintf("target of %d bytes not reached, smallest result is %d bytes", target, len(res.Data))
	}
	return archive.File{Name: name, Data: res.Data}, note, nil
}
