// Package config handles magnifier configuration loading.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvConfigPath = "MAGNIFIER_CONFIG"
	EnvPdftoppm   = "MAGNIFIER_PDFTOPPM"
)

// Magnification limits for the settings control.
const (
	MinMagnification  = 1.5
	MaxMagnification  = 10.0
	MagnificationStep = 0.5
)

// Page sizes offered for composition pages, portrait, in points.
const (
	PageA4 = "A4"
	PageA3 = "A3"
)

var pageSizes = map[string][2]float64{
	PageA4: {595, 842},
	PageA3: {842, 1191},
}

// ErrInvalid reports a configuration value out of range.
var ErrInvalid = errors.New("config: invalid value")

// Config is the root configuration structure.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Export  ExportConfig  `yaml:"export"`
	NewPage NewPageConfig `yaml:"new_page"`
}

// RenderConfig holds rasterizer settings.
type RenderConfig struct {
	PreviewDPI float64 `yaml:"preview_dpi"`
	HighDPI    float64 `yaml:"high_dpi"`
	Pdftoppm   string  `yaml:"pdftoppm"`
}

// ViewerConfig holds interaction settings.
type ViewerConfig struct {
	Magnification  float64       `yaml:"magnification"`
	MinSelection   float64       `yaml:"min_selection"`
	PanStep        float64       `yaml:"pan_step"`
	RedrawDebounce time.Duration `yaml:"redraw_debounce"`
	// CrossPage starts with selections going to the clipboard.
	CrossPage bool `yaml:"cross_page"`
}

// ExportConfig holds output settings.
type ExportConfig struct {
	DPI        float64 `yaml:"dpi"`
	OutputDir  string  `yaml:"output_dir"`
	ArrowColor string  `yaml:"arrow_color"`
}

// NewPageConfig picks the default composition page.
type NewPageConfig struct {
	Size      string `yaml:"size"`
	Landscape bool   `yaml:"landscape"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			PreviewDPI: 96,
			HighDPI:    300,
			Pdftoppm:   "pdftoppm",
		},
		Viewer: ViewerConfig{
			Magnification:  3,
			MinSelection:   5,
			PanStep:        20,
			RedrawDebounce: 100 * time.Millisecond,
		},
		Export: ExportConfig{
			DPI:        300,
			OutputDir:  ".",
			ArrowColor: "#cf6679",
		},
		NewPage: NewPageConfig{Size: PageA4},
	}
}

// Load reads path over the defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault loads path, or $MAGNIFIER_CONFIG when path is empty. A
// missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if bin := strings.TrimSpace(os.Getenv(EnvPdftoppm)); bin != "" {
		c.Render.Pdftoppm = bin
	}
}

// Validate checks every range the viewer depends on.
func (c *Config) Validate() error {
	switch {
	case c.Render.PreviewDPI <= 0:
		return fmt.Errorf("%w: preview_dpi %v", ErrInvalid, c.Render.PreviewDPI)
	case c.Render.HighDPI <= 0:
		return fmt.Errorf("%w: high_dpi %v", ErrInvalid, c.Render.HighDPI)
	case c.Export.DPI <= 0:
		return fmt.Errorf("%w: export dpi %v", ErrInvalid, c.Export.DPI)
	case c.Viewer.Magnification < MinMagnification || c.Viewer.Magnification > MaxMagnification:
		return fmt.Errorf("%w: magnification %v outside [%v, %v]", ErrInvalid, c.Viewer.Magnification, MinMagnification, MaxMagnification)
	case c.Viewer.MinSelection <= 0:
		return fmt.Errorf("%w: min_selection %v", ErrInvalid, c.Viewer.MinSelection)
	case c.Viewer.PanStep <= 0:
		return fmt.Errorf("%w: pan_step %v", ErrInvalid, c.Viewer.PanStep)
	case c.Viewer.RedrawDebounce < 0:
		return fmt.Errorf("%w: redraw_debounce %v", ErrInvalid, c.Viewer.RedrawDebounce)
	}
	if _, ok := pageSizes[strings.ToUpper(c.NewPage.Size)]; !ok {
		return fmt.Errorf("%w: new_page size %q", ErrInvalid, c.NewPage.Size)
	}
	if _, err := ParseHexColor(c.Export.ArrowColor); err != nil {
		return err
	}
	return nil
}

// SnapMagnification rounds m to the nearest step inside the allowed range.
func SnapMagnification(m float64) float64 {
	steps := int((m-MinMagnification)/MagnificationStep + 0.5)
	m = MinMagnification + float64(steps)*MagnificationStep
	if m < MinMagnification {
		return MinMagnification
	}
	if m > MaxMagnification {
		return MaxMagnification
	}
	return m
}

// PageSize returns the composition page dimensions for name, swapped when
// landscape.
func PageSize(name string, landscape bool) (width, height float64, err error) {
	dims, ok := pageSizes[strings.ToUpper(name)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: page size %q", ErrInvalid, name)
	}
	if landscape {
		return dims[1], dims[0], nil
	}
	return dims[0], dims[1], nil
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	var err error
	switch len(hex) {
	case 6:
		_, err = fmt.Sscanf(hex, "%2x%2x%2x", &c.R, &c.G, &c.B)
	case 3:
		_, err = fmt.Sscanf(hex, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = errors.New("bad length")
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: color %q: %v", ErrInvalid, s, err)
	}
	return c, nil
}
