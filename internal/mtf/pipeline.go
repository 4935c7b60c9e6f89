package mtf

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ironsheep/edge-mtf-mcp/internal/imaging"
)

// Options holds the tunable constants of the pipeline.
type Options struct {
	// BinWidth is the ESF bin width in pixels.
	BinWidth float64 `yaml:"binWidth" json:"bin_width"`
	// BinPad widens the ESF bin range on both ends.
	BinPad float64 `yaml:"binPad" json:"bin_pad"`

	ESFWindow int `yaml:"esfWindow" json:"esf_window"`
	ESFOrder  int `yaml:"esfOrder" json:"esf_order"`

	FFTLength  int `yaml:"fftLength" json:"fft_length"`
	BandLength int `yaml:"bandLength" json:"band_length"`

	MTFWindow int `yaml:"mtfWindow" json:"mtf_window"`
	MTFOrder  int `yaml:"mtfOrder" json:"mtf_order"`

	// Workers bounds AnalyzeRegions concurrency. 0 means one per CPU.
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultOptions returns the standard slanted-edge settings: 0.1 pixel bins,
// SG(51,3) on the ESF, a 2048-point FFT reporting 127 bins and SG(101,5) on
// the MTF.
func DefaultOptions() Options {
	return Options{
		BinWidth:   0.1,
		BinPad:     0.0001,
		ESFWindow:  51,
		ESFOrder:   3,
		FFTLength:  2048,
		BandLength: 127,
		MTFWindow:  101,
		MTFOrder:   5,
		Workers:    0,
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	var errs []error
	if o.BinWidth <= 0 {
		errs = append(errs, fmt.Errorf("binWidth must be positive, got %g", o.BinWidth))
	}
	if o.BinPad < 0 {
		errs = append(errs, fmt.Errorf("binPad must not be negative, got %g", o.BinPad))
	}
	for _, w := range []struct {
		name          string
		window, order int
	}{
		{"esf", o.ESFWindow, o.ESFOrder},
		{"mtf", o.MTFWindow, o.MTFOrder},
	} {
		if w.window <= 0 || w.window%2 == 0 {
			errs = append(errs, fmt.Errorf("%sWindow must be a positive odd number, got %d", w.name, w.window))
		}
		if w.order < 0 || w.order >= w.window {
			errs = append(errs, fmt.Errorf("%sOrder must be in [0, %sWindow), got %d", w.name, w.name, w.order))
		}
	}
	if o.FFTLength <= 0 || o.BandLength <= 0 || o.BandLength > o.FFTLength/2 {
		errs = append(errs, fmt.Errorf("bandLength %d must be in [1, fftLength/2] for fftLength %d", o.BandLength, o.FFTLength))
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", o.Workers))
	}
	return errors.Join(errs...)
}

func (o Options) esf() ESFOptions {
	return ESFOptions{
		BinWidth:     o.BinWidth,
		BinPad:       o.BinPad,
		SmoothWindow: o.ESFWindow,
		SmoothOrder:  o.ESFOrder,
	}
}

func (o Options) transfer() TransferOptions {
	return TransferOptions{
		FFTLength:    o.FFTLength,
		BandLength:   o.BandLength,
		SmoothWindow: o.MTFWindow,
		SmoothOrder:  o.MTFOrder,
	}
}

// Result is a completed measurement with the intermediates a renderer may
// want to display.
type Result struct {
	ROI         imaging.ROI   `json:"roi" yaml:"roi"`
	Record      *Record       `json:"record" yaml:"record"`
	Threshold   Threshold     `json:"threshold" yaml:"threshold"`
	Orientation Orientation   `json:"orientation" yaml:"orientation"`
	Edges       *EdgeLocation `json:"edges" yaml:"edges"`
	ESF         *ESF          `json:"esf" yaml:"esf"`
	LSF         *LSF          `json:"lsf" yaml:"lsf"`
	Spectrum    *Spectrum     `json:"-" yaml:"-"`
}

// Analyzer runs the slanted-edge pipeline. It holds no per-run state, so one
// Analyzer may be shared by many goroutines.
type Analyzer struct {
	opts   Options
	logger zerolog.Logger
}

// NewAnalyzer creates an analyzer. Invalid options are rejected.
func NewAnalyzer(opts Options, logger zerolog.Logger) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analyzer options: %w", err)
	}
	return &Analyzer{
		opts:   opts,
		logger: logger.With().Str("component", "mtf").Logger(),
	}, nil
}

// Options returns the analyzer's settings.
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze crops roi out of g and measures it.
func (a *Analyzer) Analyze(g *imaging.SampleGrid, roi imaging.ROI) (*Result, error) {
	region, err := g.Crop(roi)
	if err != nil {
		return nil, &StageError{Stage: StageCrop, ROI: roi, Row: -1, Err: err}
	}
	return a.analyze(region, roi)
}

// AnalyzeRegion measures a grid that is already cropped to the edge region.
func (a *Analyzer) AnalyzeRegion(region *imaging.SampleGrid) (*Result, error) {
	return a.analyze(region, imaging.FullROI(region.Rows, region.Cols))
}

func (a *Analyzer) analyze(region *imaging.SampleGrid, roi imaging.ROI) (*Result, error) {
	log := a.logger.With().Stringer("roi", roi).Logger()
	res := &Result{ROI: roi}

	fail := func(stage string, err error) error {
		se := &StageError{
			Stage:      stage,
			ROI:        roi,
			Row:        -1,
			Transposed: res.Orientation.Transposed,
			Err:        err,
		}
		var re *rowError
		if errors.As(err, &re) {
			se.Row, se.Err = re.row, re.err
		}
		log.Debug().Err(err).Str("stage", stage).Msg("analysis failed")
		return se
	}

	lo, hi := region.MinMax()

	var err error
	res.Orientation, err = DetectOrientation(region, lo, hi)
	if err != nil {
		return nil, fail(StageOrientation, err)
	}
	log.Debug().
		Float64("angle", res.Orientation.AngleDegrees).
		Bool("transposed", res.Orientation.Transposed).
		Int("edge_pixels", res.Orientation.EdgePixels).
		Msg("edge orientation")

	res.Threshold, err = EstimateThreshold(region)
	if err != nil {
		return nil, fail(StageThreshold, err)
	}
	log.Debug().
		Float64("threshold", res.Threshold.Value).
		Int("otsu_level", res.Threshold.Level).
		Msg("threshold")

	work := region
	if res.Orientation.Transposed {
		work = region.Transpose()
	}

	res.Edges, err = LocateEdges(work, res.Threshold.Value)
	if err != nil {
		return nil, fail(StageEdge, err)
	}
	if res.Edges.SkippedPositions > 0 || res.Edges.SkippedWindows > 0 {
		log.Warn().
			Int("rows", len(res.Edges.Positions)).
			Int("skipped_positions", res.Edges.SkippedPositions).
			Int("skipped_windows", res.Edges.SkippedWindows).
			Msg("scanlines skipped")
	}

	res.ESF, err = BuildESF(res.Edges, a.opts.esf())
	if err != nil {
		return nil, fail(StageESF, err)
	}
	log.Debug().Int("bins", len(res.ESF.Values)).Int("samples", res.ESF.Samples).Msg("edge spread function")

	res.LSF = BuildLSF(res.ESF)

	res.Record, res.Spectrum, err = ComputeMTF(res.LSF, a.opts.transfer())
	if err != nil {
		return nil, fail(StageMTF, err)
	}
	log.Debug().Float64("mtf_nyquist", res.Record.MTFNyquist).Msg("modulation transfer function")

	return res, nil
}

// RegionResult is the outcome of one region of a batch.
type RegionResult struct {
	ROI    imaging.ROI
	Result *Result
	Err    error
}

// AnalyzeRegions measures several regions of one grid concurrently. Regions
// are independent: a failure in one does not stop the others. Results are
// returned in the order of rois.
func (a *Analyzer) AnalyzeRegions(g *imaging.SampleGrid, rois []imaging.ROI) []RegionResult {
	results := make([]RegionResult, len(rois))

	workers := a.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(rois) {
		workers = len(rois)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := a.Analyze(g, rois[i])
				results[i] = RegionResult{ROI: rois[i], Result: res, Err: err}
			}
		}()
	}

	for i := range rois {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	a.logger.Debug().Int("regions", len(rois)).Int("workers", workers).Msg("batch analysed")
	return results
}
