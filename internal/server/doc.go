// Package server implements the MCP (Model Context Protocol) server for
// slanted-edge MTF measurement.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Region Inspection:
//   - image_crop: Preview a region, by bounds or by name
//   - image_region_stats: Intensity statistics and Otsu split of a region
//   - image_edge_detect: Canny edge map of a region
//
// MTF Measurement:
//   - mtf_roi_overlay: Draw a region and its edge pixels on the image
//   - mtf_measure: Measure one region
//   - mtf_measure_batch: Measure several regions of one image concurrently
//
// Regions are given as row_start, row_end, col_start, col_end with exclusive
// ends.
//
// # Image Caching
//
// Images are cached by path and reused across tool calls for the lifetime of
// the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Measurement failures name the
// pipeline stage and, for scanline failures, the row.
package server
