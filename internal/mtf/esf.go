package mtf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// ESFOptions controls binning and smoothing of the edge spread function.
type ESFOptions struct {
	BinWidth     float64
	BinPad       float64
	SmoothWindow int
	SmoothOrder  int
}

// ESF is the super-resolved edge spread function.
type ESF struct {
	// Positions are bin centers shifted so the first is 0, in pixels.
	Positions []float64 `json:"positions" yaml:"positions"`
	Values    []float64 `json:"values" yaml:"values"`
	Smoothed  []float64 `json:"smoothed" yaml:"smoothed"`

	// Counts is the number of pooled samples per bin. Bins with 0 members
	// were filled from their neighbours.
	Counts []int `json:"counts" yaml:"counts"`

	// Samples is the number of pooled (position, intensity) pairs.
	Samples int `json:"samples" yaml:"samples"`
}

// BuildESF pools the wide windows of every scanline around that scanline's
// edge position and averages them into uniform bins.
func BuildESF(loc *EdgeLocation, opts ESFOptions) (*ESF, error) {
	if opts.BinWidth <= 0 {
		return nil, fmt.Errorf("bin width must be positive, got %g", opts.BinWidth)
	}

	positions, values := pool(loc)
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no scanline has a complete %d-sample window", ErrInsufficientSamples, WideWindowLen)
	}

	esf, err := binSamples(positions, values, opts.BinWidth, opts.BinPad)
	if err != nil {
		return nil, err
	}

	esf.Smoothed, err = SavitzkyGolay(esf.Values, opts.SmoothWindow, opts.SmoothOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth ESF of %d bins: %w", len(esf.Values), err)
	}
	return esf, nil
}

// pool flattens the windows of all rows into edge-relative positions and
// intensities, window column by window column.
func pool(loc *EdgeLocation) (positions, values []float64) {
	for j := 0; j < WideWindowLen; j++ {
		for i := range loc.Outcomes {
			o := &loc.Outcomes[i]
			if !o.HasWindow() {
				continue
			}
			positions = append(positions, o.Window.Columns[j]-loc.Positions[i])
			values = append(values, o.Window.Values[j])
		}
	}
	return positions, values
}

// binSamples averages values into bins of width w spanning
// [min - pad, max + pad + w). Bin i covers [lo + i*w, lo + (i+1)*w).
func binSamples(positions, values []float64, w, pad float64) (*ESF, error) {
	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	lo -= pad
	hi += pad + w

	numBins := int(math.Ceil((hi-lo)/w)) - 1
	if numBins < 1 {
		numBins = 1
	}

	sums := make([]float64, numBins)
	counts := make([]int, numBins)
	for i, p := range positions {
		b := int(math.Floor((p - lo) / w))
		if b < 0 {
			b = 0
		}
		if b >= numBins {
			b = numBins - 1
		}
		sums[b] += values[i]
		counts[b]++
	}

	esf := &ESF{
		Positions: make([]float64, numBins),
		Values:    make([]float64, numBins),
		Counts:    counts,
		Samples:   len(positions),
	}
	for i := range esf.Positions {
		esf.Positions[i] = float64(i) * w
		if counts[i] > 0 {
			esf.Values[i] = sums[i] / float64(counts[i])
		}
	}

	if err := fillEmptyBins(esf.Values, counts); err != nil {
		return nil, err
	}
	return esf, nil
}

// fillEmptyBins interpolates bins with no members linearly from the nearest
// populated bins, holding the end values constant.
func fillEmptyBins(values []float64, counts []int) error {
	var xs, ys []float64
	for i, n := range counts {
		if n > 0 {
			xs = append(xs, float64(i))
			ys = append(ys, values[i])
		}
	}
	if len(xs) == len(values) {
		return nil
	}

	switch len(xs) {
	case 0:
		return fmt.Errorf("%w: every ESF bin is empty", ErrInsufficientSamples)
	case 1:
		for i := range values {
			values[i] = ys[0]
		}
		return nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return fmt.Errorf("failed to fit ESF bins: %w", err)
	}
	for i, n := range counts {
		if n == 0 {
			values[i] = pl.Predict(float64(i))
		}
	}
	return nil
}
