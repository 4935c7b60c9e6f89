package mtf

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// TransferOptions controls the Fourier stage.
type TransferOptions struct {
	// FFTLength is the zero-padded transform length.
	FFTLength int
	// BandLength is the number of non-negative frequency bins reported.
	BandLength   int
	SmoothWindow int
	SmoothOrder  int
}

// Record is the numeric result of one measurement. Field names are the keys
// consumers persist.
//
// SmoothMTF and MTFNyquist are rescaled: negative filter output is clamped to
// 0 and the curve divided by its peak. Spectrum.Filtered keeps the filter
// output before that step.
type Record struct {
	SpatialFrequency []float64 `json:"spatial_frequency" yaml:"spatial_frequency"`
	MTF              []float64 `json:"mtf" yaml:"mtf"`
	SmoothMTF        []float64 `json:"smooth_mtf" yaml:"smooth_mtf"`
	MTFNyquist       float64   `json:"mtf_nyquist" yaml:"mtf_nyquist"`
}

// Spectrum holds the normalized band of both LSF variants before the final
// smoothing pass, and that pass's unclamped output.
type Spectrum struct {
	Frequency []float64
	Raw       []float64
	Smoothed  []float64
	Filtered  []float64
}

// ComputeMTF transforms both LSF variants and derives the MTF record. The
// smoothed-LSF curve is smoothed once more, clamped at 0 and renormalized so
// its peak is 1; mtf_nyquist is its value at the middle of the band.
func ComputeMTF(lsf *LSF, opts TransferOptions) (*Record, *Spectrum, error) {
	if opts.FFTLength <= 0 || opts.BandLength <= 0 || opts.BandLength > opts.FFTLength/2 {
		return nil, nil, fmt.Errorf("invalid transform: band of %d bins in a %d-point FFT", opts.BandLength, opts.FFTLength)
	}

	fft := fourier.NewCmplxFFT(opts.FFTLength)

	raw, err := band(fft, lsf.Values, opts.BandLength)
	if err != nil {
		return nil, nil, fmt.Errorf("raw LSF: %w", err)
	}
	smoothed, err := band(fft, lsf.Smoothed, opts.BandLength)
	if err != nil {
		return nil, nil, fmt.Errorf("smoothed LSF: %w", err)
	}

	final, err := SavitzkyGolay(smoothed, opts.SmoothWindow, opts.SmoothOrder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to smooth MTF band of %d bins: %w", len(smoothed), err)
	}
	filtered := append([]float64(nil), final...)
	var peak float64
	for i, v := range final {
		if v < 0 {
			final[i] = 0
		}
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range final {
			final[i] /= peak
		}
	}

	freq := make([]float64, opts.BandLength)
	for i := range freq {
		freq[i] = float64(i) / float64(opts.BandLength)
	}

	rec := &Record{
		SpatialFrequency: freq,
		MTF:              raw,
		SmoothMTF:        final,
		MTFNyquist:       final[len(final)/2],
	}
	return rec, &Spectrum{Frequency: freq, Raw: raw, Smoothed: smoothed, Filtered: filtered}, nil
}

// band zero-pads (or truncates) x to the transform length and returns the
// magnitudes of the first n bins at and above zero frequency in the shifted
// spectrum, divided by their maximum.
func band(fft *fourier.CmplxFFT, x []float64, n int) ([]float64, error) {
	size := fft.Len()
	seq := make([]complex128, size)
	for i := 0; i < len(x) && i < size; i++ {
		seq[i] = complex(x[i], 0)
	}
	coeff := fft.Coefficients(nil, seq)

	zero := fft.ShiftIdx(0)
	out := make([]float64, n)
	var peak float64
	for j := range out {
		out[j] = cmplx.Abs(coeff[fft.UnshiftIdx(zero+j)])
		if out[j] > peak {
			peak = out[j]
		}
	}
	if peak == 0 {
		return nil, fmt.Errorf("%w: line spread function is zero", ErrEdgeNotFound)
	}
	for j := range out {
		out[j] /= peak
	}
	return out, nil
}
