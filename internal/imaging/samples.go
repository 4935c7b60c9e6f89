package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// ROI is a rectangular region of interest in (row, column) coordinates.
//
// RowEnd and ColEnd are exclusive.
type ROI struct {
	RowStart int `json:"row_start" yaml:"row_start"`
	RowEnd   int `json:"row_end" yaml:"row_end"`
	ColStart int `json:"col_start" yaml:"col_start"`
	ColEnd   int `json:"col_end" yaml:"col_end"`
}

// Rows returns the number of rows covered by the region.
func (r ROI) Rows() int { return r.RowEnd - r.RowStart }

// Cols returns the number of columns covered by the region.
func (r ROI) Cols() int { return r.ColEnd - r.ColStart }

// Rect returns the region as an image rectangle (x = column, y = row).
func (r ROI) Rect() image.Rectangle {
	return image.Rect(r.ColStart, r.RowStart, r.ColEnd, r.RowEnd)
}

func (r ROI) String() string {
	return fmt.Sprintf("(rows %d:%d, cols %d:%d)", r.RowStart, r.RowEnd, r.ColStart, r.ColEnd)
}

// Validate checks that the region is non-empty and lies inside a grid of the
// given size.
func (r ROI) Validate(rows, cols int) error {
	if r.RowEnd <= r.RowStart || r.ColEnd <= r.ColStart {
		return fmt.Errorf("invalid region %s: row_end must be > row_start and col_end must be > col_start", r)
	}
	if r.RowStart < 0 || r.ColStart < 0 || r.RowEnd > rows || r.ColEnd > cols {
		return fmt.Errorf("region %s outside grid bounds (%d rows, %d cols)", r, rows, cols)
	}
	return nil
}

// FullROI returns the region covering an entire grid.
func FullROI(rows, cols int) ROI {
	return ROI{RowStart: 0, RowEnd: rows, ColStart: 0, ColEnd: cols}
}

// SampleGrid is a row-major 2D array of intensity samples.
//
// After normalization by GridFromImage, every sample lies in 0-255. Grids
// built directly from float data are used as-is.
type SampleGrid struct {
	Rows int
	Cols int
	Data []float64
}

// NewSampleGrid allocates a zero-filled grid.
func NewSampleGrid(rows, cols int) *SampleGrid {
	return &SampleGrid{
		Rows: rows,
		Cols: cols,
		Data: make([]float64, rows*cols),
	}
}

// GridFromRows builds a grid from a slice of equally sized rows.
// The row data is copied.
func GridFromRows(rows [][]float64) (*SampleGrid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty sample rows")
	}
	cols := len(rows[0])
	g := NewSampleGrid(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d samples, want %d", r, len(row), cols)
		}
		copy(g.Data[r*cols:(r+1)*cols], row)
	}
	return g, nil
}

// At returns the sample at (row, col).
func (g *SampleGrid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores a sample at (row, col).
func (g *SampleGrid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Row returns the samples of one row. The returned slice aliases the grid and
// must be treated as read-only.
func (g *SampleGrid) Row(row int) []float64 {
	return g.Data[row*g.Cols : (row+1)*g.Cols]
}

// Clone returns a deep copy of the grid.
func (g *SampleGrid) Clone() *SampleGrid {
	out := NewSampleGrid(g.Rows, g.Cols)
	copy(out.Data, g.Data)
	return out
}

// Crop extracts a region into a new grid.
func (g *SampleGrid) Crop(roi ROI) (*SampleGrid, error) {
	if err := roi.Validate(g.Rows, g.Cols); err != nil {
		return nil, err
	}
	out := NewSampleGrid(roi.Rows(), roi.Cols())
	for r := 0; r < out.Rows; r++ {
		src := g.Data[(roi.RowStart+r)*g.Cols+roi.ColStart : (roi.RowStart+r)*g.Cols+roi.ColEnd]
		copy(out.Data[r*out.Cols:(r+1)*out.Cols], src)
	}
	return out, nil
}

// Transpose returns a new grid with rows and columns swapped.
func (g *SampleGrid) Transpose() *SampleGrid {
	out := NewSampleGrid(g.Cols, g.Rows)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			out.Data[c*out.Cols+r] = g.Data[r*g.Cols+c]
		}
	}
	return out
}

// MinMax returns the smallest and largest sample.
func (g *SampleGrid) MinMax() (float64, float64) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	lo, hi := g.Data[0], g.Data[0]
	for _, v := range g.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Gray renders the grid as an 8-bit grayscale image. Samples are rounded and
// clamped to 0-255.
func (g *SampleGrid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.Cols, g.Rows))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			img.Pix[r*img.Stride+c] = toUint8(g.Data[r*g.Cols+c])
		}
	}
	return img
}

// BoxBlur returns the grid smoothed with a 3x3 mean filter. The result is
// quantized to 8 bits, like any filtered 8-bit image, and borders replicate
// the nearest edge sample.
func (g *SampleGrid) BoxBlur() *SampleGrid {
	blurred := blur.Box(g.Gray(), 1)
	out := NewSampleGrid(g.Rows, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			// Gray input, so R == G == B.
			out.Data[r*g.Cols+c] = float64(blurred.Pix[r*blurred.Stride+c*4])
		}
	}
	return out
}

// GridFromImage converts an image into an 8-bit intensity grid.
//
// 16-bit grayscale images are reduced by integer division by 4 when
// convert10Bit is set (10-bit samples stored in 16-bit containers), otherwise
// by taking the high byte. All other images are reduced to BT.601 luminance.
func GridFromImage(img image.Image, convert10Bit bool) *SampleGrid {
	bounds := img.Bounds()
	g := NewSampleGrid(bounds.Dy(), bounds.Dx())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				g.Data[y*g.Cols+x] = float64(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				v := src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y
				if convert10Bit {
					v /= 4
					if v > 255 {
						v = 255
					}
				} else {
					v >>= 8
				}
				g.Data[y*g.Cols+x] = float64(v)
			}
		}
	default:
		gray := imaging.Grayscale(img)
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				g.Data[y*g.Cols+x] = float64(gray.Pix[y*gray.Stride+x*4])
			}
		}
	}
	return g
}

func toUint8(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
