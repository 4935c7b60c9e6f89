// Package config loads and saves the server configuration.
// Configuration is read from a YAML file; anything the file leaves out keeps
// its default value.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/edge-mtf-mcp/internal/mtf"
)

// Config represents the server configuration loaded from YAML.
type Config struct {
	// Pipeline holds the slanted-edge analysis constants.
	Pipeline mtf.Options `yaml:"pipeline"`

	// Image loading parameters
	Image struct {
		// Convert10Bit treats 16-bit grayscale files as 10-bit sensor dumps
		// and divides them by 4 instead of 256. Raw edge captures are 10-bit,
		// so this is on unless a full-range 16-bit source is expected.
		Convert10Bit bool `yaml:"convert10Bit"`
	} `yaml:"image"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn or error.
		Level string `yaml:"level"`

		// Format is console or json.
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Output parameters
	Output struct {
		// Dir is where relative result paths are resolved.
		Dir string `yaml:"dir"`

		// Format is the default record format: json or yaml.
		Format string `yaml:"format"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Pipeline = mtf.DefaultOptions()

	cfg.Image.Convert10Bit = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	cfg.Output.Dir = "."
	cfg.Output.Format = "json"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not console or json", c.Logging.Format))
	}

	switch strings.ToLower(c.Output.Format) {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not json or yaml", c.Output.Format))
	}

	return errors.Join(errs...)
}

// ResolveOutput joins a relative result path onto Output.Dir. Absolute paths
// are returned unchanged.
func (c *Config) ResolveOutput(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Output.Dir == "" {
		return path
	}
	return filepath.Join(c.Output.Dir, path)
}
