package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var convertProperty = map[string]interface{}{
	"type":        "boolean",
	"description": "Treat 16-bit grayscale data as 10-bit sensor output (divide by 4). Defaults to the server configuration.",
}

// roiProperties returns the four region bounds in (row, column) order,
// merged with extra tool-specific properties.
func roiProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": pathProperty,
		"row_start": map[string]interface{}{
			"type":        "integer",
			"description": "First row of the region (0-based)",
		},
		"row_end": map[string]interface{}{
			"type":        "integer",
			"description": "Row after the last row of the region (exclusive)",
		},
		"col_start": map[string]interface{}{
			"type":        "integer",
			"description": "First column of the region (0-based)",
		},
		"col_end": map[string]interface{}{
			"type":        "integer",
			"description": "Column after the last column of the region (exclusive)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var roiRequired = []string{"path", "row_start", "row_end", "col_start", "col_end"}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and bit depth. The image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file. Rows are the height, columns the width.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Region Inspection
		{
			Name:        "image_crop",
			Description: "Crop a region from an image and return it as base64-encoded PNG. Use this to check that a region contains a single clean edge before measuring it. Either give the four bounds or a named region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": roiProperties(map[string]interface{}{
					"region": map[string]interface{}{
						"type":        "string",
						"description": "Named region used instead of explicit bounds",
						"enum":        []string{"top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"},
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional nearest-neighbour zoom factor (e.g., 4.0 to see individual pixels). Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_region_stats",
			Description: "Intensity statistics of a region: min, max, mean, standard deviation, Michelson contrast, distinct levels and the Otsu threshold. A good edge region is bimodal with high contrast.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": roiProperties(map[string]interface{}{
					"convert_10bit": convertProperty,
				}),
				"required": roiRequired,
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Canny edge map of a region as base64-encoded PNG. This is the map used to estimate edge orientation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": roiProperties(map[string]interface{}{
					"threshold_low": map[string]interface{}{
						"type":        "number",
						"description": "Low hysteresis threshold. Default: region minimum",
					},
					"threshold_high": map[string]interface{}{
						"type":        "number",
						"description": "High hysteresis threshold. Default: region maximum minus 5",
					},
					"convert_10bit": convertProperty,
				}),
				"required": roiRequired,
			},
		},

		// MTF Measurement
		{
			Name:        "mtf_roi_overlay",
			Description: "Draw a region outline and its detected edge pixels on the image, returned as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": roiProperties(map[string]interface{}{
					"roi_color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as hex (e.g., '#ff0000'). Default red",
					},
					"edge_color": map[string]interface{}{
						"type":        "string",
						"description": "Edge pixel color as hex. Default green",
					},
					"convert_10bit": convertProperty,
				}),
				"required": roiRequired,
			},
		},
		{
			Name:        "mtf_measure",
			Description: "Measure the modulation transfer function of a slanted edge in a region. Returns spatial_frequency, mtf, smooth_mtf and mtf_nyquist.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": roiProperties(map[string]interface{}{
					"convert_10bit": convertProperty,
					"include_curves": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return ESF, LSF and MTF series for plotting",
						"default":     false,
					},
					"include_diagnostics": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return threshold, orientation and skipped scanline counts",
						"default":     false,
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the record to. Relative paths are resolved against the configured output directory",
					},
					"output_format": map[string]interface{}{
						"type":        "string",
						"description": "Record format for output_path. Default: from the file extension, else the configured format",
						"enum":        []string{"json", "yaml"},
					},
				}),
				"required": roiRequired,
			},
		},
		{
			Name:        "mtf_measure_batch",
			Description: "Measure several regions of one image concurrently. Each region succeeds or fails on its own.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"rois": map[string]interface{}{
						"type":        "array",
						"description": "Regions to measure",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"row_start": map[string]interface{}{"type": "integer"},
								"row_end":   map[string]interface{}{"type": "integer"},
								"col_start": map[string]interface{}{"type": "integer"},
								"col_end":   map[string]interface{}{"type": "integer"},
							},
							"required": []string{"row_start", "row_end", "col_start", "col_end"},
						},
					},
					"convert_10bit": convertProperty,
				},
				"required": []string{"path", "rois"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
