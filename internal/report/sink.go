// Package report persists MTF records and prepares curves for external
// renderers.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
)

// Format is a record serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported record format %q", s)
	}
}

// FormatFromPath picks the format from the file extension, falling back to
// def when the extension is not recognised.
func FormatFromPath(path string, def Format) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return def
}

// Sink receives completed records.
type Sink interface {
	Write(rec *mtf.Record) error
}

// FileSink writes each record to a single file, replacing earlier content.
type FileSink struct {
	Path   string
	Format Format
}

// NewFileSink creates a sink for path. An empty format is taken from the
// file extension, defaulting to JSON.
func NewFileSink(path string, format Format) *FileSink {
	if format == "" {
		format = FormatFromPath(path, FormatJSON)
	}
	return &FileSink{Path: path, Format: format}
}

// Write serializes rec and writes it, creating parent directories.
func (s *FileSink) Write(rec *mtf.Record) error {
	if rec == nil {
		return fmt.Errorf("no record to write")
	}

	data, err := Marshal(rec, s.Format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Marshal encodes rec in the given format. Keys are spatial_frequency, mtf,
// smooth_mtf and mtf_nyquist in both encodings.
func Marshal(rec *mtf.Record, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode record as JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record as YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}
}
