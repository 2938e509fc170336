// Package compress provides the size-targeting re-encoder used by the image tools.
package compress

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBudget = errors.New("target size must be positive")
	ErrEmptySurface  = errors.New("surface must have positive width and height")
)

// Surface is a raster that can be re-encoded at a quality in [0,1] and resampled.
// Resample must return a new surface and leave the receiver untouched.
type Surface interface {
	Size() (w, h int)
	Encode(quality float64) ([]byte, error)
	Resample(w, h int) (Surface, error)
}

// ladder steps are kept in tenths so that float drift never adds or drops a step
const (
	qualityStart = 9
	qualityFloor = 1
	scaleStart   = 9
	scaleFloor   = 3

	downscaleQuality = 0.7
	skipTolerance    = 1.05
)

// MaxAttempts is the upper bound of encodes CompressToBudget performs.
const MaxAttempts = (qualityStart - qualityFloor + 1) + (scaleStart - scaleFloor + 1)

type Result struct {
	Data     []byte
	Quality  float64
	Scale    float64
	Width    int
	Height   int
	Attempts int
	// Reached is false when no attempt fit the budget and Data is the last attempt.
	Reached bool
}

// WithinTolerance reports whether a payload of size bytes is close enough to target
// (up to 5% above) that recompressing it is not worth it.
func WithinTolerance(size, target int64) bool {
	return float64(size) <= float64(target)*skipTolerance
}

// CompressToBudget walks the quality ladder on the original surface and then the
// downscale ladder (always resampled from the original) until an encode fits targetBytes.
func CompressToBudget(s Surface, targetBytes int64) (*Result, error) {
	if targetBytes <= 0 {
		return nil, ErrInvalidBudget
	}
	if s == nil {
		return nil, ErrEmptySurface
	}
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptySurface
	}

	res := &Result{Scale: 1, Width: w, Height: h}

	for q := qualityStart; q >= qualityFloor; q-- {
		quality := float64(q) / 10
		data, err := s.Encode(quality)
		if err != nil {
			return nil, fmt.Errorf("encode at quality %.1f: %w", quality, err)
		}
		res.Attempts++
		res.Data, res.Quality = data, quality
		if int64(len(data)) <= targetBytes {
			res.Reached = true
			return res, nil
		}
	}

	for sc := scaleStart; sc >= scaleFloor; sc-- {
		scale := float64(sc) / 10
		// integer math keeps floor exact: floor(w*sc/10)
		sw, sh := max(w*sc/10, 1), max(h*sc/10, 1)

		scaled, err := s.Resample(sw, sh)
		if err != nil {
			return nil, fmt.Errorf("resample to %dx%d: %w", sw, sh, err)
		}
		data, err := scaled.Encode(downscaleQuality)
		if err != nil {
			return nil, fmt.Errorf("encode at scale %.1f: %w", scale, err)
		}
		res.Attempts++
		res.Data, res.Quality, res.Scale = data, downscaleQuality, scale
		res.Width, res.Height = sw, sh
		if int64(len(data)) <= targetBytes {
			res.Reached = true
			return res, nil
		}
	}

	return res, nil
}
