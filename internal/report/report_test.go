package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
)

func sampleRecord() *mtf.Record {
	return &mtf.Record{
		SpatialFrequency: []float64{0, 0.5},
		MTF:              []float64{1, 0.4},
		SmoothMTF:        []float64{1, 0.35},
		MTFNyquist:       0.35,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{".JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{".yml", FormatYAML, false},
		{"csv", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	if f := FormatFromPath("out/run.yaml", FormatJSON); f != FormatYAML {
		t.Errorf("yaml extension: got %q", f)
	}
	if f := FormatFromPath("out/run.txt", FormatYAML); f != FormatYAML {
		t.Errorf("unknown extension should use default, got %q", f)
	}
	if s := NewFileSink("out/run", ""); s.Format != FormatJSON {
		t.Errorf("no extension: got %q", s.Format)
	}
}

func TestFileSink_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "edge.json")
	sink := NewFileSink(path, "")

	if err := sink.Write(sampleRecord()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	for _, key := range []string{"spatial_frequency", "mtf", "smooth_mtf", "mtf_nyquist"} {
		if _, ok := got[key]; !ok {
			t.Errorf("record missing key %q", key)
		}
	}
	if got["mtf_nyquist"] != 0.35 {
		t.Errorf("mtf_nyquist: got %v", got["mtf_nyquist"])
	}
}

func TestFileSink_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edge.yml")
	sink := NewFileSink(path, "")

	if err := sink.Write(sampleRecord()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read record: %v", err)
	}
	if !strings.Contains(string(data), "smooth_mtf:") {
		t.Errorf("unexpected YAML:\n%s", data)
	}

	var got mtf.Record
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("record is not YAML: %v", err)
	}
	if got.MTFNyquist != 0.35 || len(got.SmoothMTF) != 2 {
		t.Errorf("decoded record: %+v", got)
	}
}

func TestFileSink_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := NewFileSink(filepath.Join(dir, "a.json"), "").Write(nil); err == nil {
		t.Error("nil record should fail")
	}
	if err := (&FileSink{Path: filepath.Join(dir, "a.csv"), Format: "csv"}).Write(sampleRecord()); err == nil {
		t.Error("unknown format should fail")
	}

	// A regular file where a directory is needed.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}
	if err := NewFileSink(filepath.Join(blocker, "a.json"), "").Write(sampleRecord()); err == nil {
		t.Error("writing below a file should fail")
	}
}

func TestCurves(t *testing.T) {
	res := &mtf.Result{
		Record: sampleRecord(),
		ESF:    &mtf.ESF{Positions: []float64{0, 0.1, 0.2}, Values: []float64{10, 50, 90}, Smoothed: []float64{11, 50, 89}},
		LSF:    &mtf.LSF{Values: []float64{0, 40, 40}, Smoothed: []float64{0, 39, 39}},
	}

	series, err := Curves(res)
	if err != nil {
		t.Fatalf("Curves failed: %v", err)
	}

	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Name
		if len(s.X) != len(s.Y) {
			t.Errorf("%s: %d x values, %d y values", s.Name, len(s.X), len(s.Y))
		}
		if s.XLabel == "" || s.YLabel == "" {
			t.Errorf("%s: missing axis labels", s.Name)
		}
	}
	if got := strings.Join(names, ","); got != "esf,esf_smooth,lsf,lsf_smooth,mtf,mtf_smooth" {
		t.Errorf("series: %s", got)
	}

	if _, err := Curves(&mtf.Result{Record: sampleRecord()}); err == nil {
		t.Error("missing intermediates should fail")
	}
}
