package mtf

import (
	"errors"
	"fmt"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

// Error kinds reported by the pipeline. Use errors.Is to test for them; a
// failed region run wraps one of these in a *StageError.
var (
	// ErrDegenerateRegion means the region has no usable bimodal split:
	// one side of the threshold is empty.
	ErrDegenerateRegion = errors.New("degenerate region")

	// ErrEdgeNotFound means no edge pixels were detected in the region, or
	// the edge carries no energy to transform.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrNoEdgeFound means one scanline has no real transition. It aborts
	// the whole run.
	ErrNoEdgeFound = errors.New("no edge found on scanline")

	// ErrInterpolationSkipped marks a scanline whose sub-pixel fit or wide
	// window could not be taken. It is recorded per row and never aborts a
	// run on its own.
	ErrInterpolationSkipped = errors.New("interpolation skipped")

	// ErrInsufficientSamples means a stage received fewer samples than it
	// needs, e.g. a smoothing window longer than the curve.
	ErrInsufficientSamples = errors.New("insufficient samples")
)

// Stage names used in StageError.
const (
	StageCrop        = "crop"
	StageOrientation = "orientation"
	StageThreshold   = "threshold"
	StageEdge        = "edge"
	StageESF         = "esf"
	StageLSF         = "lsf"
	StageMTF         = "mtf"
)

// StageError describes a region-level failure with enough context to pick a
// different region.
type StageError struct {
	Stage      string
	ROI        imaging.ROI
	Row        int // scanline index in the analysed grid, -1 if not row specific
	Transposed bool
	Err        error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s stage failed for region %s", e.Stage, e.ROI)
	if e.Row >= 0 {
		axis := "row"
		if e.Transposed {
			axis = "column"
		}
		msg += fmt.Sprintf(" at %s %d", axis, e.Row)
	}
	return msg + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// rowError carries the scanline index of a row-level failure up to the
// pipeline, which turns it into a StageError.
type rowError struct {
	row int
	err error
}

func (e *rowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.row, e.err)
}

func (e *rowError) Unwrap() error {
	return e.err
}

// RowOf returns the scanline index carried by err, or -1.
func RowOf(err error) int {
	var se *StageError
	if errors.As(err, &se) {
		return se.Row
	}
	var re *rowError
	if errors.As(err, &re) {
		return re.row
	}
	return -1
}
