package report

import (
	"fmt"

	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
)

// Series is one plottable curve.
type Series struct {
	Name   string    `json:"name" yaml:"name"`
	XLabel string    `json:"x_label" yaml:"x_label"`
	YLabel string    `json:"y_label" yaml:"y_label"`
	X      []float64 `json:"x" yaml:"x"`
	Y      []float64 `json:"y" yaml:"y"`
}

// Curves returns the ESF, LSF and MTF of res as series ready for an external
// plotting tool. Raw and smoothed variants share an axis.
func Curves(res *mtf.Result) ([]Series, error) {
	if res == nil || res.ESF == nil || res.LSF == nil || res.Record == nil {
		return nil, fmt.Errorf("incomplete result")
	}

	const (
		pixels    = "distance (pixels)"
		intensity = "intensity"
		spread    = "|dESF|"
		freq      = "spatial frequency (normalized)"
		modul     = "modulation"
	)

	pos := res.ESF.Positions
	return []Series{
		{Name: "esf", XLabel: pixels, YLabel: intensity, X: pos, Y: res.ESF.Values},
		{Name: "esf_smooth", XLabel: pixels, YLabel: intensity, X: pos, Y: res.ESF.Smoothed},
		{Name: "lsf", XLabel: pixels, YLabel: spread, X: pos, Y: res.LSF.Values},
		{Name: "lsf_smooth", XLabel: pixels, YLabel: spread, X: pos, Y: res.LSF.Smoothed},
		{Name: "mtf", XLabel: freq, YLabel: modul, X: res.Record.SpatialFrequency, Y: res.Record.MTF},
		{Name: "mtf_smooth", XLabel: freq, YLabel: modul, X: res.Record.SpatialFrequency, Y: res.Record.SmoothMTF},
	}, nil
}
