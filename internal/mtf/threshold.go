package mtf

import (
	"fmt"
	"math"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

// Threshold is the intensity the sub-pixel locator interpolates against.
type Threshold struct {
	// Value is midway between the two group means.
	Value float64 `json:"value" yaml:"value"`

	// Level is the Otsu histogram split. Samples <= Level are below.
	Level int `json:"otsu_level" yaml:"otsu_level"`

	MeanBelow  float64 `json:"mean_below" yaml:"mean_below"`
	MeanAbove  float64 `json:"mean_above" yaml:"mean_above"`
	CountBelow int     `json:"count_below" yaml:"count_below"`
	CountAbove int     `json:"count_above" yaml:"count_above"`
}

// OtsuLevel returns the histogram level maximising between-class variance.
// ok is false when every sample falls in one bin.
func OtsuLevel(hist []int) (level int, ok bool) {
	var total, weighted float64
	for v, n := range hist {
		total += float64(n)
		weighted += float64(v * n)
	}

	var (
		best        float64
		lowCount    float64
		lowWeighted float64
	)
	for v, n := range hist {
		lowCount += float64(n)
		lowWeighted += float64(v * n)

		highCount := total - lowCount
		if lowCount == 0 || highCount == 0 {
			continue
		}

		d := lowWeighted/lowCount - (weighted-lowWeighted)/highCount
		variance := lowCount * highCount * d * d
		if !ok || variance > best {
			best = variance
			level = v
			ok = true
		}
	}
	return level, ok
}

// EstimateThreshold splits the region's samples with Otsu's method and
// returns the midpoint of the two group means.
func EstimateThreshold(g *imaging.SampleGrid) (Threshold, error) {
	level, ok := OtsuLevel(imaging.Histogram(g))
	if !ok {
		return Threshold{}, fmt.Errorf("%w: all %d samples share one level", ErrDegenerateRegion, len(g.Data))
	}

	var th Threshold
	th.Level = level

	var sumBelow, sumAbove float64
	for _, v := range g.Data {
		// Classify on the same rounded scale the histogram was built on.
		if math.Round(v) <= float64(level) {
			sumBelow += v
			th.CountBelow++
		} else {
			sumAbove += v
			th.CountAbove++
		}
	}
	if th.CountBelow == 0 || th.CountAbove == 0 {
		return Threshold{}, fmt.Errorf("%w: %d samples below level %d, %d above",
			ErrDegenerateRegion, th.CountBelow, level, th.CountAbove)
	}

	th.MeanBelow = sumBelow / float64(th.CountBelow)
	th.MeanAbove = sumAbove / float64(th.CountAbove)
	th.Value = (th.MeanBelow-th.MeanAbove)/2 + th.MeanAbove
	return th, nil
}
