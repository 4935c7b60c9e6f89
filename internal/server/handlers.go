package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
	"github.com/ironsheep/edge-mtf-mcp/internal/report"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "mtf_measure").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	log := s.logger.With().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Logger()
	if err != nil {
		log.Warn().Err(err).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug().Msg("tool completed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/mtf function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Region Inspection
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_region_stats":
		return s.handleImageRegionStats(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// MTF Measurement
	case "mtf_roi_overlay":
		return s.handleMTFROIOverlay(args)
	case "mtf_measure":
		return s.handleMTFMeasure(args)
	case "mtf_measure_batch":
		return s.handleMTFMeasureBatch(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// roiArgs are the region bounds shared by the region tools.
type roiArgs struct {
	RowStart int `json:"row_start"`
	RowEnd   int `json:"row_end"`
	ColStart int `json:"col_start"`
	ColEnd   int `json:"col_end"`
}

func (a roiArgs) roi() imaging.ROI {
	return imaging.ROI{RowStart: a.RowStart, RowEnd: a.RowEnd, ColStart: a.ColStart, ColEnd: a.ColEnd}
}

// convert10Bit resolves an optional per-call override against the
// configured default.
func (s *Server) convert10Bit(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.cfg.Image.Convert10Bit
}

// loadRegion loads the image at path as samples and crops roi out of it.
func (s *Server) loadRegion(path string, roi imaging.ROI, convert *bool) (*imaging.SampleGrid, error) {
	g, err := imaging.LoadSamples(s.cache, path, s.convert10Bit(convert))
	if err != nil {
		return nil, err
	}
	return g.Crop(roi)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Region Inspection Handlers ===

type imageCropArgs struct {
	Path string `json:"path"`
	roiArgs
	Region string  `json:"region"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	roi := a.roi()
	if a.Region != "" {
		b := img.Bounds()
		if roi, err = imaging.NamedROI(b.Dy(), b.Dx(), a.Region); err != nil {
			return nil, err
		}
	}
	return imaging.CropROI(img, roi, a.Scale)
}

type imageRegionStatsArgs struct {
	Path string `json:"path"`
	roiArgs
	Convert10Bit *bool `json:"convert_10bit"`
}

// regionStatsResult adds the Otsu split to the plain statistics. Threshold
// is absent when the region has a single level.
type regionStatsResult struct {
	ROI imaging.ROI `json:"roi"`
	*imaging.RegionStats
	Threshold *mtf.Threshold `json:"threshold,omitempty"`
}

func (s *Server) handleImageRegionStats(args json.RawMessage) (interface{}, error) {
	var a imageRegionStatsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	region, err := s.loadRegion(a.Path, a.roi(), a.Convert10Bit)
	if err != nil {
		return nil, err
	}

	result := &regionStatsResult{ROI: a.roi(), RegionStats: imaging.Stats(region)}
	th, err := mtf.EstimateThreshold(region)
	switch {
	case err == nil:
		result.Threshold = &th
	case !errors.Is(err, mtf.ErrDegenerateRegion):
		return nil, err
	}
	return result, nil
}

type imageEdgeDetectArgs struct {
	Path string `json:"path"`
	roiArgs
	ThresholdLow  *float64 `json:"threshold_low"`
	ThresholdHigh *float64 `json:"threshold_high"`
	Convert10Bit  *bool    `json:"convert_10bit"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	region, err := s.loadRegion(a.Path, a.roi(), a.Convert10Bit)
	if err != nil {
		return nil, err
	}

	lo, hi := region.MinMax()
	hi -= mtf.CannyMargin
	if a.ThresholdLow != nil {
		lo = *a.ThresholdLow
	}
	if a.ThresholdHigh != nil {
		hi = *a.ThresholdHigh
	}
	return imaging.EdgeDetect(region, lo, hi)
}

// === MTF Measurement Handlers ===

type mtfROIOverlayArgs struct {
	Path string `json:"path"`
	roiArgs
	ROIColor     string `json:"roi_color"`
	EdgeColor    string `json:"edge_color"`
	Convert10Bit *bool  `json:"convert_10bit"`
}

func (s *Server) handleMTFROIOverlay(args json.RawMessage) (interface{}, error) {
	var a mtfROIOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	region, err := s.loadRegion(a.Path, a.roi(), a.Convert10Bit)
	if err != nil {
		return nil, err
	}

	lo, hi := region.MinMax()
	edges := imaging.DetectEdges(region, lo, hi-mtf.CannyMargin)
	return imaging.OverlayROI(img, a.roi(), edges.Points(), a.ROIColor, a.EdgeColor)
}

type mtfMeasureArgs struct {
	Path string `json:"path"`
	roiArgs
	Convert10Bit       *bool  `json:"convert_10bit"`
	IncludeCurves      bool   `json:"include_curves"`
	IncludeDiagnostics bool   `json:"include_diagnostics"`
	OutputPath         string `json:"output_path"`
	OutputFormat       string `json:"output_format"`
}

// diagnostics summarises how a measurement went, for deciding whether the
// region was a good choice.
type diagnostics struct {
	Threshold        mtf.Threshold   `json:"threshold"`
	Orientation      mtf.Orientation `json:"orientation"`
	Scanlines        int             `json:"scanlines"`
	SkippedPositions int             `json:"skipped_positions"`
	SkippedWindows   int             `json:"skipped_windows"`
	ESFBins          int             `json:"esf_bins"`
	ESFSamples       int             `json:"esf_samples"`
}

func newDiagnostics(res *mtf.Result) *diagnostics {
	return &diagnostics{
		Threshold:        res.Threshold,
		Orientation:      res.Orientation,
		Scanlines:        len(res.Edges.Positions),
		SkippedPositions: res.Edges.SkippedPositions,
		SkippedWindows:   res.Edges.SkippedWindows,
		ESFBins:          len(res.ESF.Values),
		ESFSamples:       res.ESF.Samples,
	}
}

type measureResult struct {
	ID          string          `json:"measurement_id"`
	Path        string          `json:"path"`
	ROI         imaging.ROI     `json:"roi"`
	Record      *mtf.Record     `json:"record"`
	Diagnostics *diagnostics    `json:"diagnostics,omitempty"`
	Curves      []report.Series `json:"curves,omitempty"`
	OutputPath  string          `json:"output_path,omitempty"`
}

func (s *Server) handleMTFMeasure(args json.RawMessage) (interface{}, error) {
	var a mtfMeasureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	g, err := imaging.LoadSamples(s.cache, a.Path, s.convert10Bit(a.Convert10Bit))
	if err != nil {
		return nil, err
	}

	res, err := s.analyzer.Analyze(g, a.roi())
	if err != nil {
		return nil, err
	}

	result := &measureResult{ID: uuid.New().String(), Path: a.Path, ROI: res.ROI, Record: res.Record}
	s.logger.Info().
		Str("measurement_id", result.ID).
		Str("path", a.Path).
		Stringer("roi", res.ROI).
		Float64("mtf_nyquist", res.Record.MTFNyquist).
		Msg("measurement completed")
	if a.IncludeDiagnostics {
		result.Diagnostics = newDiagnostics(res)
	}
	if a.IncludeCurves {
		if result.Curves, err = report.Curves(res); err != nil {
			return nil, err
		}
	}

	if a.OutputPath != "" {
		path := s.cfg.ResolveOutput(a.OutputPath)
		sink, err := s.sink(path, a.OutputFormat)
		if err != nil {
			return nil, err
		}
		if err := sink.Write(res.Record); err != nil {
			return nil, err
		}
		result.OutputPath = path
	}
	return result, nil
}

// sink picks the record format: explicit argument, then file extension,
// then the configured default.
func (s *Server) sink(path, format string) (report.Sink, error) {
	if format != "" {
		f, err := report.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		return report.NewFileSink(path, f), nil
	}
	def, err := report.ParseFormat(s.cfg.Output.Format)
	if err != nil {
		def = report.FormatJSON
	}
	return report.NewFileSink(path, report.FormatFromPath(path, def)), nil
}

type mtfMeasureBatchArgs struct {
	Path         string    `json:"path"`
	ROIs         []roiArgs `json:"rois"`
	Convert10Bit *bool     `json:"convert_10bit"`
}

type batchEntry struct {
	ROI    imaging.ROI `json:"roi"`
	Record *mtf.Record `json:"record,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type batchResult struct {
	ID        string       `json:"batch_id"`
	Path      string       `json:"path"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []batchEntry `json:"results"`
}

func (s *Server) handleMTFMeasureBatch(args json.RawMessage) (interface{}, error) {
	var a mtfMeasureBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.ROIs) == 0 {
		return nil, fmt.Errorf("rois must contain at least one region")
	}
	g, err := imaging.LoadSamples(s.cache, a.Path, s.convert10Bit(a.Convert10Bit))
	if err != nil {
		return nil, err
	}

	rois := make([]imaging.ROI, len(a.ROIs))
	for i, r := range a.ROIs {
		rois[i] = r.roi()
	}

	result := &batchResult{ID: uuid.New().String(), Path: a.Path, Results: make([]batchEntry, len(rois))}
	for i, rr := range s.analyzer.AnalyzeRegions(g, rois) {
		entry := batchEntry{ROI: rr.ROI}
		if rr.Err != nil {
			entry.Error = rr.Err.Error()
			result.Failed++
		} else {
			entry.Record = rr.Result.Record
			result.Succeeded++
		}
		result.Results[i] = entry
	}
	s.logger.Info().
		Str("batch_id", result.ID).
		Str("path", a.Path).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("batch completed")
	return result, nil
}
