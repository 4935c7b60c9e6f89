// Package mtf measures the modulation transfer function of an imaging system
// from a slanted black/white edge with the slanted-edge SFR method.
//
// A measurement runs these stages on a region of 8-bit samples:
//
//  1. DetectOrientation: Canny edge pixels and a least-squares line fit. Edges
//     closer to horizontal than 45 degrees are handled on the transposed grid
//     so every scanline crosses the edge.
//  2. EstimateThreshold: Otsu split of the histogram; the threshold is the
//     midpoint of the two group means.
//  3. LocateEdges: per scanline, the steepest step of a 3x3 mean-blurred copy
//     and a monotone cubic fit of the raw samples around it, evaluated at the
//     threshold.
//  4. BuildESF: every scanline's 13 samples around its edge, pooled and
//     averaged into 0.1 pixel bins, then Savitzky-Golay smoothed.
//  5. BuildLSF: absolute first difference of the ESF.
//  6. ComputeMTF: magnitude of the zero-padded FFT of the LSF, first 127
//     non-negative frequency bins, normalized to a peak of 1.
//
// Each stage is a plain function of its inputs. Analyzer chains them and
// reports region-level failures as *StageError values wrapping one of the
// Err* kinds. Per-scanline problems are recorded in ScanlineOutcome and
// repaired instead of failing the run, except a scanline with no transition
// at all (ErrNoEdgeFound), which aborts it.
package mtf
