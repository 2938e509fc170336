package transport

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/UnendingLoop/DocMint/internal/model"
	"github.com/wb-go/wbf/zlog"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrJobFailed):
		return 409
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectTool),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrTooManyFiles),
		errors.Is(err, model.ErrIncorrectParams),
		errors.Is(err, model.ErrIncorrectOrder),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}

// parseParams reads tool parameters from form fields; absent fields stay zero.
func parseParams(field func(string) string) (model.Params, error) {
	var p model.Params
	var err error

	if p.TargetBytes, err = parseInt64(field("target_bytes")); err != nil {
		return p, err
	}
	if p.Width, err = parseFloat(field("width")); err != nil {
		return p, err
	}
	if p.Height, err = parseFloat(field("height")); err != nil {
		return p, err
	}
	margin, err := parseInt64(field("margin"))
	if err != nil {
		return p, err
	}
	conc, err := parseInt64(field("concurrency"))
	if err != nil {
		return p, err
	}
	p.Margin, p.Concurrency = int(margin), int(conc)

	p.WidthUnit = model.Unit(strings.TrimSpace(field("width_unit")))
	p.HeightUnit = model.Unit(strings.TrimSpace(field("height_unit")))
	p.Paper = model.Paper(strings.TrimSpace(field("paper")))
	p.FitMode = model.FitMode(strings.TrimSpace(field("fit_mode")))

	if p.Order, err = parseOrder(field("order")); err != nil {
		return p, err
	}
	return p, nil
}

func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, model.ErrIncorrectParams
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, model.ErrIncorrectParams
	}
	return v, nil
}

// parseOrder: "3, 1,2" -> [3 1 2]
func parseOrder(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	order := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, model.ErrIncorrectOrder
		}
		order = append(order, v)
	}
	return order, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Handler failed to close fileflow")
	}
}
