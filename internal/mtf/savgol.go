package mtf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths x by fitting a polynomial of the given order to each
// window of samples by least squares.
//
// window must be odd and greater than order. The first and last window/2
// samples are taken from the polynomial fitted to the first and last full
// window, so the output has the same length as x and polynomials of degree
// <= order pass through unchanged.
func SavitzkyGolay(x []float64, window, order int) ([]float64, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("savitzky-golay window must be a positive odd number, got %d", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savitzky-golay order %d must be in [0, %d)", order, window)
	}
	if len(x) < window {
		return nil, fmt.Errorf("%w: %d samples for a smoothing window of %d", ErrInsufficientSamples, len(x), window)
	}

	h, err := projection(window, order)
	if err != nil {
		return nil, err
	}

	half := window / 2
	n := len(x)
	out := make([]float64, n)

	apply := func(row, offset int) float64 {
		var s float64
		for j := 0; j < window; j++ {
			s += h.At(row, j) * x[offset+j]
		}
		return s
	}

	for i := 0; i < half; i++ {
		out[i] = apply(i, 0)
		out[n-half+i] = apply(half+1+i, n-window)
	}
	for i := half; i < n-half; i++ {
		out[i] = apply(half, i-half)
	}
	return out, nil
}

// projection returns the window x window hat matrix A·pinv(A) of the
// polynomial design matrix A. Row i maps a window of samples to the fitted
// value at window position i.
func projection(window, order int) (*mat.Dense, error) {
	half := float64(window / 2)
	if half == 0 {
		half = 1
	}
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		// Scaled to [-1, 1] to keep the design matrix well conditioned.
		t := (float64(i) - half) / half
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= t
		}
	}

	eye := mat.NewDense(window, window, nil)
	for i := 0; i < window; i++ {
		eye.Set(i, i, 1)
	}

	var pinv mat.Dense
	if err := pinv.Solve(a, eye); err != nil {
		return nil, fmt.Errorf("failed to solve savitzky-golay design: %w", err)
	}

	var h mat.Dense
	h.Mul(a, &pinv)
	return &h, nil
}
