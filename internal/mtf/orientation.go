package mtf

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

// CannyMargin is subtracted from the region maximum to form the upper Canny
// threshold.
const CannyMargin = 5

// Orientation is the detected edge direction of a region.
type Orientation struct {
	// AngleDegrees is atan of the fitted row/column slope, in (-90, 90].
	// A vertical edge is 90, a horizontal edge 0.
	AngleDegrees float64 `json:"angle_degrees" yaml:"angle_degrees"`

	// Transposed is set when |AngleDegrees| < 45, i.e. the grid must be
	// transposed so the edge crosses every scanline.
	Transposed bool `json:"transposed" yaml:"transposed"`

	EdgePixels int `json:"edge_pixels" yaml:"edge_pixels"`

	// Points are the detected edge pixels in region coordinates
	// (X = column, Y = row) before any transposition.
	Points []image.Point `json:"-" yaml:"-"`
}

// DetectOrientation finds edge pixels with Canny (low = lo, high = hi minus
// CannyMargin) and fits a straight line through them.
func DetectOrientation(g *imaging.SampleGrid, lo, hi float64) (Orientation, error) {
	edges := imaging.DetectEdges(g, lo, hi-CannyMargin)
	points := edges.Points()
	if len(points) < 2 {
		return Orientation{}, fmt.Errorf("%w: %d edge pixels detected", ErrEdgeNotFound, len(points))
	}

	angle := fitAngle(points)
	return Orientation{
		AngleDegrees: angle,
		Transposed:   math.Abs(angle) < 45,
		EdgePixels:   len(points),
		Points:       points,
	}, nil
}

// fitAngle returns the least-squares edge angle in degrees. The regression
// runs against whichever axis has the larger spread so steep edges do not
// produce a near-infinite slope.
func fitAngle(points []image.Point) float64 {
	rows := make([]float64, len(points))
	cols := make([]float64, len(points))
	for i, p := range points {
		rows[i] = float64(p.Y)
		cols[i] = float64(p.X)
	}

	if stat.Variance(rows, nil) >= stat.Variance(cols, nil) {
		// col = a + b*row, so the row/column slope is 1/b.
		_, b := stat.LinearRegression(rows, cols, nil, false)
		angle := math.Atan2(1, b) * 180 / math.Pi
		if angle > 90 {
			angle -= 180
		}
		return angle
	}

	_, slope := stat.LinearRegression(cols, rows, nil, false)
	return math.Atan(slope) * 180 / math.Pi
}
