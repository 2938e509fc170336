package compress

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSurface encodes to a size derived from quality and area so tests control convergence.
type fakeSurface struct {
	w, h     int
	sizeFn   func(w, h int, q float64) int
	log      *callLog
	encodeEr error
}

type callLog struct {
	encodes   []float64
	resamples [][2]int
	sizes     []int
}

func (f *fakeSurface) Size() (int, int) { return f.w, f.h }

func (f *fakeSurface) Encode(q float64) ([]byte, error) {
	if f.encodeEr != nil {
		return nil, f.encodeEr
	}
	n := f.sizeFn(f.w, f.h, q)
	f.log.encodes = append(f.log.encodes, q)
	f.log.sizes = append(f.log.sizes, n)
	return make([]byte, n), nil
}

func (f *fakeSurface) Resample(w, h int) (Surface, error) {
	f.log.resamples = append(f.log.resamples, [2]int{w, h})
	return &fakeSurface{w: w, h: h, sizeFn: f.sizeFn, log: f.log}, nil
}

func linearSize(w, h int, q float64) int {
	return int(math.Round(float64(w*h) * q))
}

func newFake(w, h int) *fakeSurface {
	return &fakeSurface{w: w, h: h, sizeFn: linearSize, log: &callLog{}}
}

func TestCompressToBudget_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		surface Surface
		target  int64
		wantErr error
	}{
		{"zero target", newFake(10, 10), 0, ErrInvalidBudget},
		{"negative target", newFake(10, 10), -5, ErrInvalidBudget},
		{"nil surface", nil, 100, ErrEmptySurface},
		{"zero width", newFake(0, 10), 100, ErrEmptySurface},
		{"zero height", newFake(10, 0), 100, ErrEmptySurface},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := CompressToBudget(tt.surface, tt.target)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, res)
		})
	}
}

func TestCompressToBudget_QualityPhase(t *testing.T) {
	s := newFake(100, 100) // 10000 px, size = 10000*q

	res, err := CompressToBudget(s, 6000)
	require.NoError(t, err)
	require.True(t, res.Reached)
	require.InDelta(t, 0.6, res.Quality, 1e-9)
	require.Equal(t, 1.0, res.Scale)
	require.Len(t, res.Data, 6000)
	require.Equal(t, 4, res.Attempts)
	require.Empty(t, s.log.resamples)
	require.Equal(t, []int{9000, 8000, 7000, 6000}, s.log.sizes)
}

func TestCompressToBudget_FirstFitWinsNotSmallest(t *testing.T) {
	// non-monotonic encoder: 0.8 fits, 0.5 would be even smaller
	sizes := map[int]int{9: 500, 8: 90, 7: 300, 6: 200, 5: 10}
	s := &fakeSurface{w: 10, h: 10, log: &callLog{}, sizeFn: func(_, _ int, q float64) int {
		if n, ok := sizes[int(q*10+0.5)]; ok {
			return n
		}
		return 1000
	}}

	res, err := CompressToBudget(s, 100)
	require.NoError(t, err)
	require.True(t, res.Reached)
	require.InDelta(t, 0.8, res.Quality, 1e-9)
	require.Len(t, res.Data, 90)
}

func TestCompressToBudget_DownscalePhase(t *testing.T) {
	// size is dominated by area: even quality 0.1 stays at 55% of the pixel count
	s := &fakeSurface{w: 1000, h: 500, log: &callLog{}, sizeFn: func(w, h int, q float64) int {
		return int(math.Round(float64(w*h) * (0.5 + q/2)))
	}}

	// scale 0.6 -> 600x300 -> 153000; scale 0.5 -> 500x250 -> 106250
	res, err := CompressToBudget(s, 110000)
	require.NoError(t, err)
	require.True(t, res.Reached)
	require.InDelta(t, 0.5, res.Scale, 1e-9)
	require.InDelta(t, 0.7, res.Quality, 1e-9)
	require.Equal(t, 500, res.Width)
	require.Equal(t, 250, res.Height)
	require.Equal(t, 9+5, res.Attempts)
	require.Len(t, res.Data, 106250)

	// every resample derives from the original dimensions
	require.Equal(t, [][2]int{{900, 450}, {800, 400}, {700, 350}, {600, 300}, {500, 250}}, s.log.resamples)
}

func TestCompressToBudget_NonConvergence(t *testing.T) {
	s := newFake(101, 53)

	res, err := CompressToBudget(s, 1)
	require.NoError(t, err)
	require.False(t, res.Reached)
	require.NotEmpty(t, res.Data)
	require.InDelta(t, 0.3, res.Scale, 1e-9)
	require.InDelta(t, 0.7, res.Quality, 1e-9)
	require.Equal(t, MaxAttempts, res.Attempts)
	require.Equal(t, 16, MaxAttempts)
	require.Len(t, s.log.encodes, 16)
	require.Len(t, s.log.resamples, 7)

	// floors: never below quality 0.1 or 30% of the original size
	for _, q := range s.log.encodes {
		require.GreaterOrEqual(t, q, 0.1-1e-9)
	}
	last := s.log.resamples[len(s.log.resamples)-1]
	require.Equal(t, [2]int{30, 15}, last) // floor(101*0.3), floor(53*0.3)
	require.Equal(t, 30, res.Width)
	require.Equal(t, 15, res.Height)
}

func TestCompressToBudget_TargetIsInclusive(t *testing.T) {
	s := newFake(10, 10)

	res, err := CompressToBudget(s, 90)
	require.NoError(t, err)
	require.True(t, res.Reached)
	require.Equal(t, 1, res.Attempts)
}

func TestCompressToBudget_EncodeError(t *testing.T) {
	s := newFake(10, 10)
	s.encodeEr = errors.New("encoder broke")

	_, err := CompressToBudget(s, 10)
	require.Error(t, err)
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		size, target int64
		want         bool
	}{
		{100, 100, true},
		{105, 100, true},
		{106, 100, false},
		{1, 1000, true},
		{2048, 1024, false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, WithinTolerance(tt.size, tt.target), "size=%d target=%d", tt.size, tt.target)
	}
}
