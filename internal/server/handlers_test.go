package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
)

// createEdgeImageFile writes a size x size grayscale PNG holding a blurred
// dark-to-light edge through the centre, leaning deg degrees from vertical.
func createEdgeImageFile(t *testing.T, size int, deg float64) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, size, size))
	drawEdge(size, deg, func(x, y int, phi float64) {
		img.SetGray(x, y, color.Gray{Y: uint8(math.Round(20 + 210*phi))})
	})
	return writePNG(t, "edge.png", img)
}

// createRawEdgeImageFile writes the same edge as a 16-bit PNG holding 10-bit
// sensor values between 80 and 940.
func createRawEdgeImageFile(t *testing.T, size int, deg float64) string {
	t.Helper()

	img := image.NewGray16(image.Rect(0, 0, size, size))
	drawEdge(size, deg, func(x, y int, phi float64) {
		img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(80 + 860*phi))})
	})
	return writePNG(t, "raw.png", img)
}

func drawEdge(size int, deg float64, set func(x, y int, phi float64)) {
	slope := math.Tan(deg * math.Pi / 180)
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		edge := center + (float64(y)-center)*slope
		for x := 0; x < size; x++ {
			set(x, y, 0.5*math.Erfc(-(float64(x)-edge)/(1.2*math.Sqrt2)))
		}
	}
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("result text is not JSON: %v", err)
	}
}

func region(path string, rowStart, rowEnd, colStart, colEnd int) map[string]interface{} {
	return map[string]interface{}{
		"path":      path,
		"row_start": rowStart,
		"row_end":   rowEnd,
		"col_start": colStart,
		"col_end":   colEnd,
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	var info map[string]interface{}
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info["width"] != float64(64) || info["height"] != float64(64) {
		t.Errorf("dimensions: %v x %v", info["width"], info["height"])
	}
	if info["format"] != "png" {
		t.Errorf("format: got %v", info["format"])
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 48, 5)

	var dims map[string]interface{}
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}), &dims)

	if dims["width"] != float64(48) || dims["height"] != float64(48) {
		t.Errorf("got %v", dims)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		wantData string
	}{
		{"unknown tool", "image_sharpen", map[string]interface{}{"path": path}, "unknown tool"},
		{"missing file", "image_load", map[string]interface{}{"path": "/nonexistent/image.png"}, ""},
		{"region outside image", "mtf_measure", region(path, 0, 100, 0, 10), "crop stage"},
		{"empty region", "image_region_stats", region(path, 10, 10, 0, 10), "invalid region"},
		{"uniform region", "mtf_measure", region(path, 0, 20, 0, 10), "orientation stage"},
		{"bad named region", "image_crop", map[string]interface{}{"path": path, "region": "middle"}, ""},
		{"empty batch", "mtf_measure_batch", map[string]interface{}{"path": path, "rois": []interface{}{}}, "at least one"},
		{"bad output format", "mtf_measure", func() map[string]interface{} {
			args := region(path, 4, 60, 12, 52)
			args["output_path"] = filepath.Join(t.TempDir(), "out.json")
			args["output_format"] = "csv"
			return args
		}(), "unsupported record format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
			data, _ := resp.Error.Data.(string)
			if !strings.Contains(data, tt.wantData) {
				t.Errorf("data %q should contain %q", data, tt.wantData)
			}
		})
	}
}

func TestHandleToolsCall_ImageCrop(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	t.Run("bounds", func(t *testing.T) {
		args := region(path, 10, 30, 20, 60)
		args["scale"] = 2.0

		var res map[string]interface{}
		decodeResult(t, callTool(t, s, "image_crop", args), &res)
		if res["width"] != float64(80) || res["height"] != float64(40) {
			t.Errorf("size: %v x %v", res["width"], res["height"])
		}
		if res["mime_type"] != "image/png" || res["image_base64"] == "" {
			t.Error("missing image data")
		}
	})

	t.Run("named region", func(t *testing.T) {
		var res struct {
			ROI    map[string]int `json:"roi"`
			Width  int            `json:"width"`
			Height int            `json:"height"`
		}
		decodeResult(t, callTool(t, s, "image_crop", map[string]interface{}{"path": path, "region": "top-right"}), &res)
		if res.Width != 32 || res.Height != 32 || res.ROI["col_start"] != 32 || res.ROI["row_end"] != 32 {
			t.Errorf("got %+v", res)
		}
	})
}

func TestHandleToolsCall_ImageRegionStats(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	var edge struct {
		Min       float64        `json:"min"`
		Max       float64        `json:"max"`
		Threshold *mtf.Threshold `json:"threshold"`
	}
	decodeResult(t, callTool(t, s, "image_region_stats", region(path, 0, 64, 0, 64)), &edge)
	if edge.Min != 20 || edge.Max != 230 {
		t.Errorf("range: %v..%v", edge.Min, edge.Max)
	}
	if edge.Threshold == nil || edge.Threshold.Value < 100 || edge.Threshold.Value > 150 {
		t.Errorf("threshold: %+v", edge.Threshold)
	}

	// The left strip is flat dark: no Otsu split.
	var flat map[string]interface{}
	decodeResult(t, callTool(t, s, "image_region_stats", region(path, 0, 10, 0, 8)), &flat)
	if _, ok := flat["threshold"]; ok {
		t.Errorf("flat region should have no threshold: %v", flat)
	}
	if flat["distinct_levels"] != float64(1) {
		t.Errorf("distinct_levels: got %v", flat["distinct_levels"])
	}
}

func TestHandleToolsCall_ImageEdgeDetect(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	var res struct {
		EdgePixels int     `json:"edge_pixels"`
		Low        float64 `json:"threshold_low"`
		High       float64 `json:"threshold_high"`
	}
	decodeResult(t, callTool(t, s, "image_edge_detect", region(path, 0, 64, 0, 64)), &res)
	if res.Low != 20 || res.High != 225 {
		t.Errorf("default thresholds: %v / %v", res.Low, res.High)
	}
	if res.EdgePixels < 50 {
		t.Errorf("edge pixels: got %d", res.EdgePixels)
	}

	// Thresholds above any gradient leave nothing.
	args := region(path, 0, 64, 0, 64)
	args["threshold_low"] = 5000.0
	args["threshold_high"] = 6000.0
	decodeResult(t, callTool(t, s, "image_edge_detect", args), &res)
	if res.EdgePixels != 0 {
		t.Errorf("edge pixels with huge thresholds: got %d", res.EdgePixels)
	}
}

func TestHandleToolsCall_MTFROIOverlay(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 64, 5)

	args := region(path, 8, 56, 12, 52)
	args["roi_color"] = "#0000ff"

	var res struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		EdgePixels int    `json:"edge_pixels"`
		Image      string `json:"image_base64"`
	}
	decodeResult(t, callTool(t, s, "mtf_roi_overlay", args), &res)
	if res.Width != 64 || res.Height != 64 {
		t.Errorf("overlay should cover the full image, got %dx%d", res.Width, res.Height)
	}
	if res.EdgePixels < 30 || res.Image == "" {
		t.Errorf("edge pixels %d, image %d bytes", res.EdgePixels, len(res.Image))
	}
}

func TestHandleToolsCall_MTFMeasure(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 120, 5)
	out := filepath.Join(t.TempDir(), "records", "center.yaml")

	args := region(path, 10, 110, 30, 90)
	args["include_curves"] = true
	args["include_diagnostics"] = true
	args["output_path"] = out

	var res struct {
		ID          string         `json:"measurement_id"`
		ROI         map[string]int `json:"roi"`
		Record      mtf.Record     `json:"record"`
		OutputPath  string         `json:"output_path"`
		Diagnostics struct {
			Orientation mtf.Orientation `json:"orientation"`
			Scanlines   int             `json:"scanlines"`
			ESFBins     int             `json:"esf_bins"`
		} `json:"diagnostics"`
		Curves []struct {
			Name string    `json:"name"`
			X    []float64 `json:"x"`
		} `json:"curves"`
	}
	decodeResult(t, callTool(t, s, "mtf_measure", args), &res)

	rec := res.Record
	if len(rec.SpatialFrequency) != 127 || len(rec.MTF) != 127 || len(rec.SmoothMTF) != 127 {
		t.Fatalf("record lengths: %d %d %d", len(rec.SpatialFrequency), len(rec.MTF), len(rec.SmoothMTF))
	}
	if rec.MTF[0] != 1 || rec.MTFNyquist != rec.SmoothMTF[63] {
		t.Errorf("mtf[0]=%v nyquist=%v smooth[63]=%v", rec.MTF[0], rec.MTFNyquist, rec.SmoothMTF[63])
	}
	if _, err := uuid.Parse(res.ID); err != nil {
		t.Errorf("measurement_id %q is not a UUID: %v", res.ID, err)
	}
	if res.ROI["row_start"] != 10 || res.ROI["col_end"] != 90 {
		t.Errorf("roi: %v", res.ROI)
	}

	if res.Diagnostics.Scanlines != 100 || res.Diagnostics.Orientation.Transposed {
		t.Errorf("diagnostics: %+v", res.Diagnostics)
	}
	if len(res.Curves) != 6 || res.Curves[0].Name != "esf" || len(res.Curves[0].X) != res.Diagnostics.ESFBins {
		t.Errorf("curves: %d series", len(res.Curves))
	}

	if res.OutputPath != out {
		t.Errorf("output_path: got %q, want %q", res.OutputPath, out)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	var saved mtf.Record
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("saved record is not YAML: %v", err)
	}
	if saved.MTFNyquist != rec.MTFNyquist {
		t.Errorf("saved nyquist %v, returned %v", saved.MTFNyquist, rec.MTFNyquist)
	}
}

func TestHandleToolsCall_MTFMeasureRawDefault(t *testing.T) {
	s := newTestServer(t)
	path := createRawEdgeImageFile(t, 120, 5)
	args := region(path, 10, 110, 30, 90)

	var stats struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	decodeResult(t, callTool(t, s, "image_region_stats", args), &stats)
	if stats.Min != 20 || stats.Max != 235 {
		t.Errorf("10-bit samples should scale to 20..235, got %v..%v", stats.Min, stats.Max)
	}

	var res struct {
		Record mtf.Record `json:"record"`
	}
	decodeResult(t, callTool(t, s, "mtf_measure", args), &res)
	if len(res.Record.SmoothMTF) != 127 || res.Record.MTFNyquist <= 0 {
		t.Fatalf("record: nyquist %v, %d bins", res.Record.MTFNyquist, len(res.Record.SmoothMTF))
	}

	explicit := region(path, 10, 110, 30, 90)
	explicit["convert_10bit"] = true
	var again struct {
		Record mtf.Record `json:"record"`
	}
	decodeResult(t, callTool(t, s, "mtf_measure", explicit), &again)
	if again.Record.MTFNyquist != res.Record.MTFNyquist {
		t.Errorf("default and explicit conversion differ: %v vs %v", res.Record.MTFNyquist, again.Record.MTFNyquist)
	}
}

func TestHandleToolsCall_MTFMeasureRelativeOutput(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Output.Dir = t.TempDir()
	s.cfg.Output.Format = "yaml"
	path := createEdgeImageFile(t, 64, 5)

	args := region(path, 2, 62, 12, 52)
	args["output_path"] = "run1"

	var res struct {
		OutputPath string `json:"output_path"`
	}
	decodeResult(t, callTool(t, s, "mtf_measure", args), &res)

	want := filepath.Join(s.cfg.Output.Dir, "run1")
	if res.OutputPath != want {
		t.Fatalf("output_path: got %q, want %q", res.OutputPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	if !strings.Contains(string(data), "mtf_nyquist:") {
		t.Errorf("expected YAML from the configured format:\n%s", data)
	}
}

func TestHandleToolsCall_MTFMeasureBatch(t *testing.T) {
	s := newTestServer(t)
	path := createEdgeImageFile(t, 120, 5)

	rois := []map[string]int{
		{"row_start": 0, "row_end": 60, "col_start": 30, "col_end": 90},
		{"row_start": 0, "row_end": 30, "col_start": 0, "col_end": 20},
		{"row_start": 60, "row_end": 120, "col_start": 30, "col_end": 90},
	}

	var res struct {
		ID        string `json:"batch_id"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
		Results   []struct {
			ROI    map[string]int `json:"roi"`
			Record *mtf.Record    `json:"record"`
			Error  string         `json:"error"`
		} `json:"results"`
	}
	decodeResult(t, callTool(t, s, "mtf_measure_batch", map[string]interface{}{"path": path, "rois": rois}), &res)

	if res.Succeeded != 2 || res.Failed != 1 || len(res.Results) != 3 {
		t.Fatalf("succeeded %d, failed %d, results %d", res.Succeeded, res.Failed, len(res.Results))
	}
	if res.ID == "" {
		t.Error("missing batch_id")
	}
	for i, r := range res.Results {
		if r.ROI["row_start"] != rois[i]["row_start"] || r.ROI["col_end"] != rois[i]["col_end"] {
			t.Errorf("result %d out of order: %v", i, r.ROI)
		}
	}
	if res.Results[1].Record != nil || !strings.Contains(res.Results[1].Error, "edge not found") {
		t.Errorf("flat region: %+v", res.Results[1])
	}
	if res.Results[0].Record == nil || len(res.Results[0].Record.SmoothMTF) != 127 {
		t.Errorf("first region: %+v", res.Results[0])
	}
}
