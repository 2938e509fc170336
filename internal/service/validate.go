package service

import (
	"strings"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/UnendingLoop/DocMint/internal/tools"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "job_uid"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateNormalizeJob(raw *model.JobCreateData, clean *model.Job) error {
	// корректно ли указан инструмент
	clean.Tool = model.Tool(strings.TrimSpace(strings.ToLower(raw.Tool)))
	kind, ok := model.ToolsMap[clean.Tool]
	if !ok {
		return model.ErrIncorrectTool
	}

	// количество файлов
	if len(raw.Files) == 0 {
		return model.ErrEmptySource
	}
	if kind == model.InputSinglePDF && len(raw.Files) > 1 {
		return model.ErrTooManyFiles
	}

	params, err := normalizeParams(clean.Tool, raw.Params)
	if err != nil {
		return err
	}
	clean.Params = params
	return nil
}

// normalizeParams keeps only the fields the tool reads and fills in defaults.
func normalizeParams(tool model.Tool, in model.Params) (model.Params, error) {
	var out model.Params
	if in.TargetBytes < 0 {
		return out, model.ErrIncorrectParams
	}

	switch tool {
	case model.ToolCompress:
		if in.Width < 0 || in.Height < 0 {
			return out, model.ErrIncorrectParams
		}
		wu, err := normalizeUnit(in.WidthUnit)
		if err != nil {
			return out, err
		}
		hu, err := normalizeUnit(in.HeightUnit)
		if err != nil {
			return out, err
		}
		out.TargetBytes = in.TargetBytes
		out.Width, out.WidthUnit = in.Width, wu
		out.Height, out.HeightUnit = in.Height, hu

	case model.ToolImagesToPDF:
		paper, err := normalizePaper(in.Paper)
		if err != nil {
			return out, err
		}
		fit, err := normalizeFit(in.FitMode)
		if err != nil {
			return out, err
		}
		if in.Margin < 0 {
			return out, model.ErrIncorrectParams
		}
		out.TargetBytes = in.TargetBytes
		out.Paper, out.FitMode, out.Margin = paper, fit, in.Margin

	case model.ToolOrganizePDF:
		// выход за число страниц проверит воркер - тут документ еще не прочитан
		for _, p := range in.Order {
			if p < 1 {
				return out, model.ErrIncorrectOrder
			}
		}
		out.Order = in.Order

	case model.ToolPDFToJPG:
		if in.Concurrency < 0 {
			return out, model.ErrIncorrectParams
		}
		out.Concurrency = tools.RenderConcurrency(in.Concurrency)
	}

	return out, nil
}

func normalizeUnit(u model.Unit) (model.Unit, error) {
	switch model.Unit(strings.ToLower(string(u))) {
	case "", model.UnitPx:
		return model.UnitPx, nil
	case model.UnitMM:
		return model.UnitMM, nil
	case model.UnitCM:
		return model.UnitCM, nil
	default:
		return "", model.ErrIncorrectParams
	}
}

func normalizePaper(p model.Paper) (model.Paper, error) {
	if p == "" {
		return model.PaperA4, nil
	}
	for _, known := range []model.Paper{model.PaperA4, model.PaperA3, model.PaperLetter, model.PaperLegal, model.PaperAuto} {
		if strings.EqualFold(string(p), string(known)) {
			return known, nil
		}
	}
	return "", model.ErrIncorrectParams
}

func normalizeFit(f model.FitMode) (model.FitMode, error) {
	switch model.FitMode(strings.ToLower(string(f))) {
	case "", model.FitContain:
		return model.FitContain, nil
	case model.FitStretch:
		return model.FitStretch, nil
	case model.FitOriginal:
		return model.FitOriginal, nil
	default:
		return "", model.ErrIncorrectParams
	}
}
