package imaging

import (
	"github.com/anthonynsimon/bild/histogram"
	"gonum.org/v1/gonum/stat"
)

// RegionStats summarizes the intensity distribution of a grid.
//
// A usable edge region is clearly bimodal: a high Michelson contrast and most
// samples concentrated near the two extremes.
type RegionStats struct {
	Rows              int     `json:"rows"`
	Cols              int     `json:"cols"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Mean              float64 `json:"mean"`
	StdDev            float64 `json:"std_dev"`
	MichelsonContrast float64 `json:"michelson_contrast"`
	DistinctLevels    int     `json:"distinct_levels"`
}

// Histogram returns the 256-bin intensity histogram of the grid. Samples are
// rounded and clamped to 0-255 first.
func Histogram(g *SampleGrid) []int {
	h := histogram.NewRGBAHistogram(g.Gray())
	return h.R.Bins
}

// Stats computes RegionStats for the grid.
func Stats(g *SampleGrid) *RegionStats {
	lo, hi := g.MinMax()
	mean, std := stat.MeanStdDev(g.Data, nil)

	levels := 0
	for _, n := range Histogram(g) {
		if n > 0 {
			levels++
		}
	}

	contrast := 0.0
	if hi+lo > 0 {
		contrast = (hi - lo) / (hi + lo)
	}

	return &RegionStats{
		Rows:              g.Rows,
		Cols:              g.Cols,
		Min:               lo,
		Max:               hi,
		Mean:              mean,
		StdDev:            std,
		MichelsonContrast: contrast,
		DistinctLevels:    levels,
	}
}
