// Package imaging provides the image access layer for slanted-edge MTF analysis.
//
// This package loads image files, normalizes them to 8-bit grayscale intensity
// samples, and exposes the sample-grid primitives the MTF pipeline is built on:
// region-of-interest cropping, transposition, box blurring, Canny edge maps and
// region statistics. It also renders ROI previews and overlays for clients that
// want to check a region before measuring it.
//
// # Coordinate System
//
// Two equivalent conventions are used:
//   - SampleGrid and ROI use (row, column) indexing, origin top-left, matching
//     how scanlines are processed by the pipeline.
//   - image.Image values use (x, y), where x is the column and y the row.
//
// ROI ends are exclusive: an ROI of (RowStart=10, RowEnd=20, ColStart=5,
// ColEnd=9) covers 10 rows and 4 columns.
//
// # Bit Depth
//
// Sensor dumps often store 10-bit samples in 16-bit containers. When 10-bit
// conversion is enabled, 16-bit grayscale samples are divided by 4 (integer
// division, truncating) to reach the 0-255 range. Other images are reduced to
// 8-bit luminance using ITU-R BT.601 weights.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. SampleGrid values are not
// synchronized; every operation that changes shape (Crop, Transpose, BoxBlur)
// returns a new grid and leaves the receiver untouched, so a grid may be
// shared read-only between goroutines.
package imaging
