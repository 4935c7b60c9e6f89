package mtf

import "math"

// LSF is the line spread function, the absolute first difference of an ESF.
type LSF struct {
	Values   []float64 `json:"values" yaml:"values"`
	Smoothed []float64 `json:"smoothed" yaml:"smoothed"`
}

// BuildLSF differentiates the raw and smoothed ESF independently. Element 0
// has no predecessor and is 0.
func BuildLSF(esf *ESF) *LSF {
	return &LSF{
		Values:   absDiff(esf.Values),
		Smoothed: absDiff(esf.Smoothed),
	}
}

func absDiff(x []float64) []float64 {
	out := make([]float64, len(x))
	for k := 1; k < len(x); k++ {
		out[k] = math.Abs(x[k] - x[k-1])
	}
	return out
}
