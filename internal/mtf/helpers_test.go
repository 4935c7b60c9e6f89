package mtf

import (
	"math"
	"testing"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

// edgeGrid renders a blurred dark-to-light edge. edgeCol gives the edge
// column of each row and sigma the blur in pixels; samples are rounded like
// an 8-bit sensor would.
func edgeGrid(t *testing.T, rows, cols int, edgeCol func(row int) float64, sigma, dark, light float64) *imaging.SampleGrid {
	t.Helper()
	g := imaging.NewSampleGrid(rows, cols)
	for r := 0; r < rows; r++ {
		e := edgeCol(r)
		for c := 0; c < cols; c++ {
			phi := 0.5 * math.Erfc(-(float64(c)-e)/(sigma*math.Sqrt2))
			g.Set(r, c, math.Round(dark+(light-dark)*phi))
		}
	}
	return g
}

func vertical(col float64) func(int) float64 {
	return func(int) float64 { return col }
}

// slanted returns an edge through (centerRow, centerCol) leaning by deg
// degrees from vertical.
func slanted(centerRow int, centerCol, deg float64) func(int) float64 {
	slope := math.Tan(deg * math.Pi / 180)
	return func(r int) float64 { return centerCol + float64(r-centerRow)*slope }
}

// rotate90 turns g clockwise by a quarter turn.
func rotate90(g *imaging.SampleGrid) *imaging.SampleGrid {
	out := imaging.NewSampleGrid(g.Cols, g.Rows)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			out.Set(c, g.Rows-1-r, g.At(r, c))
		}
	}
	return out
}

func uniformGrid(rows, cols int, v float64) *imaging.SampleGrid {
	g := imaging.NewSampleGrid(rows, cols)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

func assertClose(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("%s[%d]: got %v, want %v (tol %g)", name, i, got[i], want[i], tol)
		}
	}
}
