package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/render"
	"github.com/menta2k/idphoto/pkg/replacement"
	"github.com/menta2k/idphoto/pkg/sizes"
)

// Config holds the application configuration
type Config struct {
	Layout      LayoutConfig      `json:"layout" toml:"layout"`
	Render      RenderConfig      `json:"render" toml:"render"`
	Replacement ReplacementConfig `json:"replacement" toml:"replacement"`
	Output      OutputConfig      `json:"output" toml:"output"`
}

// LayoutConfig holds the sheet geometry
type LayoutConfig struct {
	MarginMM    float64 `json:"margin_mm" toml:"margin_mm"`
	GapMM       float64 `json:"gap_mm" toml:"gap_mm"`
	Orientation string  `json:"orientation" toml:"orientation"`
}

// RenderConfig holds raster densities and the cut guide width
type RenderConfig struct {
	SheetDPI       float64 `json:"sheet_dpi" toml:"sheet_dpi"`
	PreviewPxPerMM float64 `json:"preview_px_per_mm" toml:"preview_px_per_mm"`
	SinglePxPerCM  float64 `json:"single_px_per_cm" toml:"single_px_per_cm"`
	StrokeMM       float64 `json:"stroke_mm" toml:"stroke_mm"`
}

// ReplacementConfig holds the background replacement backend settings
type ReplacementConfig struct {
	Backend      string `json:"backend" toml:"backend"`
	Model        string `json:"model" toml:"model"`
	ServerURL    string `json:"server_url" toml:"server_url"`
	DelayMS      int    `json:"delay_ms" toml:"delay_ms"`
	MaxDimension int    `json:"max_dimension" toml:"max_dimension"`
	DefaultColor string `json:"default_color" toml:"default_color"`
	CacheDir     string `json:"cache_dir" toml:"cache_dir"`
	CacheTTLHour int    `json:"cache_ttl_hours" toml:"cache_ttl_hours"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format" toml:"default_format"`
	Quality       int    `json:"quality" toml:"quality"`
	OutputDir     string `json:"output_dir" toml:"output_dir"`
	Prefix        string `json:"prefix" toml:"prefix"`
	Suffix        string `json:"suffix" toml:"suffix"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			MarginMM:    sizes.DefaultMarginMM,
			GapMM:       sizes.DefaultGapMM,
			Orientation: string(layout.Portrait),
		},
		Render: RenderConfig{
			SheetDPI:       300,
			PreviewPxPerMM: 96 / 25.4,
			SinglePxPerCM:  render.PxPerCMExport,
			StrokeMM:       render.DefaultStrokeMM,
		},
		Replacement: ReplacementConfig{
			Backend:      "gemini",
			Model:        "",
			DelayMS:      int(replacement.DefaultDelay / time.Millisecond),
			MaxDimension: 1024,
			DefaultColor: replacement.DefaultColor,
		},
		Output: OutputConfig{
			DefaultFormat: "jpg",
			Quality:       95,
			OutputDir:     "./output",
			Prefix:        "",
			Suffix:        "_print",
		},
	}
}

// LoadFromFile loads configuration from a JSON or TOML file. Missing keys
// keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isTOML(filename) {
		err = toml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as TOML or JSON, chosen by extension
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(filename) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Layout.MarginMM < 0 {
		return fmt.Errorf("layout.margin_mm cannot be negative")
	}

	if c.Layout.GapMM < 0 {
		return fmt.Errorf("layout.gap_mm cannot be negative")
	}

	if _, err := layout.ParseOrientation(c.Layout.Orientation); err != nil {
		return fmt.Errorf("layout.orientation: %w", err)
	}

	if c.Render.SheetDPI <= 0 || c.Render.PreviewPxPerMM <= 0 || c.Render.SinglePxPerCM <= 0 {
		return fmt.Errorf("render densities must be positive")
	}

	if c.Render.StrokeMM < 0 {
		return fmt.Errorf("render.stroke_mm cannot be negative")
	}

	switch c.Replacement.Backend {
	case "gemini", "llamacpp":
	default:
		return fmt.Errorf("replacement.backend must be gemini or llamacpp, got %q", c.Replacement.Backend)
	}

	if c.Replacement.DelayMS < 0 {
		return fmt.Errorf("replacement.delay_ms cannot be negative")
	}

	if c.Replacement.MaxDimension < 1 {
		return fmt.Errorf("replacement.max_dimension must be positive")
	}

	if !replacement.ValidateColor(c.Replacement.DefaultColor) {
		return fmt.Errorf("replacement.default_color %q is not a hex color or %q", c.Replacement.DefaultColor, replacement.KeepBackground)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// Geometry returns the page geometry for the configured orientation.
func (c *Config) Geometry() layout.Geometry {
	o, err := layout.ParseOrientation(c.Layout.Orientation)
	if err != nil {
		o = layout.Portrait
	}
	return layout.GeometryFor(o).WithSpacing(c.Layout.MarginMM, c.Layout.GapMM)
}

// SheetPxPerMM converts the sheet DPI to pixels per millimeter.
func (c *Config) SheetPxPerMM() float64 {
	return c.Render.SheetDPI / 25.4
}

// Delay returns the pause between replacement calls.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Replacement.DelayMS) * time.Millisecond
}

// CacheTTL returns how long replacement results are kept.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Replacement.CacheTTLHour) * time.Hour
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "idphoto", "config.toml")
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}
