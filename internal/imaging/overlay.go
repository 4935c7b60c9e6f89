package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	defaultROIColor  = "#ff0000"
	defaultEdgeColor = "#00ff00"

	// Label glyph cell and box height in pixels.
	charWidth   = 4
	labelHeight = 7
)

// OverlayResult contains an annotated image encoded as base64 PNG.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	EdgePixels  int    `json:"edge_pixels"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// OverlayROI draws the ROI outline and the given edge pixels onto a copy of
// the image. Edge points are relative to the ROI origin (X = column,
// Y = row). Colours are "#rrggbb" or "#rgb"; invalid or empty strings fall
// back to red for the outline and green for edges.
func OverlayROI(img image.Image, roi ROI, edgePoints []image.Point, roiHex, edgeHex string) (*OverlayResult, error) {
	bounds := img.Bounds()
	if err := roi.Validate(bounds.Dy(), bounds.Dx()); err != nil {
		return nil, err
	}

	roiColor := parseColor(roiHex, defaultROIColor)
	edgeColor := parseColor(edgeHex, defaultEdgeColor)

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for _, p := range edgePoints {
		x, y := roi.ColStart+p.X, roi.RowStart+p.Y
		if image.Pt(x, y).In(result.Bounds()) {
			result.Set(x, y, edgeColor)
		}
	}

	// Outline sits one pixel outside the region so it never hides samples.
	x0, y0, x1, y1 := roi.ColStart-1, roi.RowStart-1, roi.ColEnd, roi.RowEnd
	for x := x0; x <= x1; x++ {
		setIfInside(result, x, y0, roiColor)
		setIfInside(result, x, y1, roiColor)
	}
	for y := y0; y <= y1; y++ {
		setIfInside(result, x0, y, roiColor)
		setIfInside(result, x1, y, roiColor)
	}

	// Label goes above the outline, or below it when the region touches the
	// top of the frame. A region spanning the full height gets no label.
	label := fmt.Sprintf("%d,%d", roi.RowStart, roi.ColStart)
	labelY := roi.RowStart - labelHeight - 1
	if labelY < 1 {
		labelY = roi.RowEnd + 2
	}
	if labelY+labelHeight <= bounds.Dy() {
		drawLabel(result, roi.ColStart, labelY, label, color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, result); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		EdgePixels:  len(edgePoints),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

func parseColor(hex, fallback string) color.Color {
	if c, err := colorful.Hex(hex); err == nil {
		return c
	}
	c, _ := colorful.Hex(fallback)
	return c
}

func setIfInside(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel draws a small "row,col" label with a 3x5 pixel digit font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
	}

	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setIfInside(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setIfInside(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
