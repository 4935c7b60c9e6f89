package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains a cropped region encoded as base64 PNG.
type CropResult struct {
	ROI         ROI    `json:"roi"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropROI extracts a region from an image for preview.
//
// A scale other than 1 resizes the crop with nearest-neighbour sampling so that
// individual pixels across the edge stay visible when zooming in.
func CropROI(img image.Image, roi ROI, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	if err := roi.Validate(bounds.Dy(), bounds.Dx()); err != nil {
		return nil, err
	}

	cropped := imaging.Crop(img, roi.Rect().Add(bounds.Min))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %.3f collapses region %s to nothing", scale, roi)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		ROI:         roi,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// NamedROI returns a named region of a rows x cols image. Edge charts are
// usually measured at the centre and in the corners of the frame.
//
// Supported names: top-left, top-right, bottom-left, bottom-right, top-half,
// bottom-half, left-half, right-half, center.
func NamedROI(rows, cols int, name string) (ROI, error) {
	midR, midC := rows/2, cols/2

	switch name {
	case "top-left":
		return ROI{0, midR, 0, midC}, nil
	case "top-right":
		return ROI{0, midR, midC, cols}, nil
	case "bottom-left":
		return ROI{midR, rows, 0, midC}, nil
	case "bottom-right":
		return ROI{midR, rows, midC, cols}, nil
	case "top-half":
		return ROI{0, midR, 0, cols}, nil
	case "bottom-half":
		return ROI{midR, rows, 0, cols}, nil
	case "left-half":
		return ROI{0, rows, 0, midC}, nil
	case "right-half":
		return ROI{0, rows, midC, cols}, nil
	case "center":
		// Centre 50% of the frame
		qR, qC := rows/4, cols/4
		return ROI{qR, rows - qR, qC, cols - qC}, nil
	}
	return ROI{}, fmt.Errorf("unknown region: %s", name)
}
