package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
)

// EdgeMap is a binary edge classification of a SampleGrid.
type EdgeMap struct {
	Rows int
	Cols int
	Mask []bool
}

// At reports whether (row, col) is an edge pixel.
func (m *EdgeMap) At(row, col int) bool {
	return m.Mask[row*m.Cols+col]
}

// Count returns the number of edge pixels.
func (m *EdgeMap) Count() int {
	n := 0
	for _, v := range m.Mask {
		if v {
			n++
		}
	}
	return n
}

// Points returns the edge pixels in row-major order as image points
// (X = column, Y = row).
func (m *EdgeMap) Points() []image.Point {
	pts := make([]image.Point, 0, m.Count())
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if m.Mask[r*m.Cols+c] {
				pts = append(pts, image.Point{X: c, Y: r})
			}
		}
	}
	return pts
}

// Image renders the map with edges in white (255) on black.
func (m *EdgeMap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for i, v := range m.Mask {
		if v {
			img.Pix[(i/m.Cols)*img.Stride+i%m.Cols] = 255
		}
	}
	return img
}

// DetectEdges runs Canny edge detection over a sample grid.
//
// Thresholds are in the grid's intensity-gradient units, so for an 8-bit grid
// the usual choice is the region's minimum (low) and maximum minus a small
// margin (high).
//
// # Algorithm
//
//  1. Gaussian blur: 5x5 kernel to reduce noise
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  4. Hysteresis thresholding:
//     - Pixels at or above high are strong edges (always kept)
//     - Pixels between low and high are kept only next to a strong edge
//     - Pixels with zero gradient are never edges, whatever the thresholds
func DetectEdges(g *SampleGrid, low, high float64) *EdgeMap {
	width, height := g.Cols, g.Rows
	if low > high {
		low, high = high, low
	}

	blurred := gaussianBlur(g.Data, width, height)

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := blurred[clamp(y+ky, 0, height-1)*width+clamp(x+kx, 0, width-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y*width+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			angle := direction[y*width+x]
			mag := magnitude[y*width+x]

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[y*width+x-1]
				n2 = magnitude[y*width+x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[(y-1)*width+x+1]
				n2 = magnitude[(y+1)*width+x-1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[(y-1)*width+x]
				n2 = magnitude[(y+1)*width+x]
			default:
				n1 = magnitude[(y-1)*width+x-1]
				n2 = magnitude[(y+1)*width+x+1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y*width+x] = mag
			}
		}
	}

	strong := func(v float64) bool { return v > 0 && v >= high }

	edges := &EdgeMap{Rows: height, Cols: width, Mask: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := suppressed[y*width+x]
			if strong(val) {
				edges.Mask[y*width+x] = true
				continue
			}
			if val <= 0 || val < low {
				continue
			}
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					if strong(suppressed[clamp(y+ky, 0, height-1)*width+clamp(x+kx, 0, width-1)]) {
						edges.Mask[y*width+x] = true
					}
				}
			}
		}
	}

	return edges
}

// EdgeDetectResult contains an edge map encoded as base64 PNG.
type EdgeDetectResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	EdgePixels  int     `json:"edge_pixels"`
	Low         float64 `json:"threshold_low"`
	High        float64 `json:"threshold_high"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
}

// EdgeDetect runs DetectEdges and encodes the map as PNG, for clients that
// want to see what the orientation detector sees in a region.
func EdgeDetect(g *SampleGrid, low, high float64) (*EdgeDetectResult, error) {
	edges := DetectEdges(g, low, high)

	var buf bytes.Buffer
	if err := png.Encode(&buf, edges.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	return &EdgeDetectResult{
		Width:       g.Cols,
		Height:      g.Rows,
		EdgePixels:  edges.Count(),
		Low:         low,
		High:        high,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// gaussianBlur applies a 5x5 Gaussian blur (sigma ≈ 1.4) to row-major data:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(data []float64, width, height int) []float64 {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	const kernelSum = 273.0

	result := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					sum += data[clamp(y+ky, 0, height-1)*width+clamp(x+kx, 0, width-1)] * kernel[ky+2][kx+2]
				}
			}
			result[y*width+x] = sum / kernelSum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
