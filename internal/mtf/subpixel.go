package mtf

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

const (
	// narrowBefore and narrowAfter bound the 5-sample sub-pixel fit window
	// around the coarse edge column.
	narrowBefore = 2
	narrowAfter  = 2

	// wideBefore and wideAfter bound the 13-sample window pooled into the ESF.
	wideBefore = 6
	wideAfter  = 6

	// WideWindowLen is the number of samples each scanline contributes to
	// the ESF.
	WideWindowLen = wideBefore + wideAfter + 1

	// minEdgeStep is the largest blurred first difference still treated as
	// a flat scanline.
	minEdgeStep = 1
)

// ScanlineWindow holds the raw intensities around a scanline's edge and their
// absolute column indices.
type ScanlineWindow struct {
	Columns []float64 `json:"columns" yaml:"columns"`
	Values  []float64 `json:"values" yaml:"values"`
}

// ScanlineOutcome records what the locator could extract from one scanline.
type ScanlineOutcome struct {
	Row int `json:"row" yaml:"row"`

	// Coarse is the first column k maximising |blur[k+1] - blur[k]|.
	Coarse  int     `json:"coarse" yaml:"coarse"`
	MaxStep float64 `json:"max_step" yaml:"max_step"`

	// Position is the sub-pixel threshold crossing, valid only when
	// PositionErr is nil.
	Position    float64 `json:"position" yaml:"position"`
	PositionErr error   `json:"-" yaml:"-"`

	// Window is nil when WindowErr is set.
	Window    *ScanlineWindow `json:"window,omitempty" yaml:"window,omitempty"`
	WindowErr error           `json:"-" yaml:"-"`
}

// HasPosition reports whether the sub-pixel fit succeeded.
func (o *ScanlineOutcome) HasPosition() bool { return o.PositionErr == nil }

// HasWindow reports whether the wide window was extracted.
func (o *ScanlineOutcome) HasWindow() bool { return o.WindowErr == nil }

// EdgeLocation is the per-scanline result of LocateEdges.
type EdgeLocation struct {
	Outcomes []ScanlineOutcome `json:"-" yaml:"-"`

	// Positions has one entry per scanline. Rows whose fit failed are
	// repaired by linear interpolation over the row index.
	Positions []float64 `json:"positions" yaml:"positions"`

	SkippedPositions int `json:"skipped_positions" yaml:"skipped_positions"`
	SkippedWindows   int `json:"skipped_windows" yaml:"skipped_windows"`
}

// LocateEdges finds the sub-pixel threshold crossing on every row of g.
//
// The grid must have its edge running roughly vertically, so that every row
// crosses it. A row with no transition stronger than one intensity level
// fails the whole call with ErrNoEdgeFound. Rows where only the fit or the
// wide window fail are recorded and repaired.
func LocateEdges(g *imaging.SampleGrid, threshold float64) (*EdgeLocation, error) {
	blurred := g.BoxBlur()
	loc := &EdgeLocation{
		Outcomes:  make([]ScanlineOutcome, g.Rows),
		Positions: make([]float64, g.Rows),
	}

	for r := 0; r < g.Rows; r++ {
		out := &loc.Outcomes[r]
		out.Row = r
		out.Coarse, out.MaxStep = steepestStep(blurred.Row(r))
		if out.MaxStep <= minEdgeStep {
			return nil, &rowError{
				row: r,
				err: fmt.Errorf("%w: largest step %.0f", ErrNoEdgeFound, out.MaxStep),
			}
		}

		raw := g.Row(r)
		out.Position, out.PositionErr = crossing(raw, out.Coarse, threshold)
		if out.PositionErr != nil {
			loc.SkippedPositions++
		}
		out.Window, out.WindowErr = wideWindow(raw, out.Coarse)
		if out.WindowErr != nil {
			loc.SkippedWindows++
		}
	}

	if err := repairPositions(loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// steepestStep returns the first index of the largest absolute first
// difference of row, and that difference.
func steepestStep(row []float64) (int, float64) {
	k, best := 0, 0.0
	for c := 0; c+1 < len(row); c++ {
		d := row[c+1] - row[c]
		if d < 0 {
			d = -d
		}
		if d > best {
			k, best = c, d
		}
	}
	return k, best
}

// crossing fits a monotone cubic to the samples around k and returns the
// column where it meets threshold.
func crossing(row []float64, k int, threshold float64) (float64, error) {
	start, end := k-narrowBefore, k+narrowAfter+1
	if start < 0 || end > len(row) {
		return 0, fmt.Errorf("%w: fit window [%d, %d) outside row", ErrInterpolationSkipped, start, end)
	}

	n := end - start
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = row[start+i]
		ys[i] = float64(start + i)
	}

	switch {
	case strictlyIncreasing(xs):
	case strictlyDecreasing(xs):
		reverse(xs)
		reverse(ys)
	default:
		return 0, fmt.Errorf("%w: samples %v not strictly monotonic", ErrInterpolationSkipped, xs)
	}

	if threshold < xs[0] || threshold > xs[n-1] {
		return 0, fmt.Errorf("%w: threshold %.2f outside [%.0f, %.0f]", ErrInterpolationSkipped, threshold, xs[0], xs[n-1])
	}

	var fb interp.FritschButland
	if err := fb.Fit(xs, ys); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInterpolationSkipped, err)
	}
	return fb.Predict(threshold), nil
}

// wideWindow copies the samples k-6 .. k+6 of row.
func wideWindow(row []float64, k int) (*ScanlineWindow, error) {
	start, end := k-wideBefore, k+wideAfter+1
	if start < 0 || end > len(row) {
		return nil, fmt.Errorf("%w: wide window [%d, %d) outside row of %d", ErrInterpolationSkipped, start, end, len(row))
	}

	w := &ScanlineWindow{
		Columns: make([]float64, WideWindowLen),
		Values:  make([]float64, WideWindowLen),
	}
	for i := range w.Values {
		w.Columns[i] = float64(start + i)
		w.Values[i] = row[start+i]
	}
	return w, nil
}

// repairPositions fills rows without a fitted position from their
// neighbours: linear between valid rows, constant past the first and last.
func repairPositions(loc *EdgeLocation) error {
	var rows, pos []float64
	for i := range loc.Outcomes {
		if o := &loc.Outcomes[i]; o.HasPosition() {
			rows = append(rows, float64(i))
			pos = append(pos, o.Position)
		}
	}

	switch len(rows) {
	case 0:
		return fmt.Errorf("%w: no scanline produced a sub-pixel edge position", ErrInsufficientSamples)
	case 1:
		for i := range loc.Positions {
			loc.Positions[i] = pos[0]
		}
		return nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(rows, pos); err != nil {
		return fmt.Errorf("failed to fit edge positions: %w", err)
	}
	for i := range loc.Outcomes {
		if loc.Outcomes[i].HasPosition() {
			loc.Positions[i] = loc.Outcomes[i].Position
		} else {
			loc.Positions[i] = pl.Predict(float64(i))
		}
	}
	return nil
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

func strictlyDecreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] >= xs[i-1] {
			return false
		}
	}
	return true
}

func reverse(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
