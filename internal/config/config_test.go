package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "magnifier.yaml")
	data := []byte(`
viewer:
  magnification: 4.5
  redraw_debounce: 120ms
  cross_page: true
export:
  output_dir: out
new_page:
  size: a3
  landscape: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Viewer.Magnification != 4.5 {
		t.Fatalf("magnification = %v, want 4.5", cfg.Viewer.Magnification)
	}
	if cfg.Viewer.RedrawDebounce != 120*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Viewer.RedrawDebounce)
	}
	if !cfg.Viewer.CrossPage {
		t.Fatalf("expected cross_page")
	}
	if cfg.Export.OutputDir != "out" {
		t.Fatalf("output dir = %q", cfg.Export.OutputDir)
	}
	if cfg.Render.HighDPI != 300 || cfg.Viewer.PanStep != 20 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvPdftoppm, "")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Viewer.Magnification != 3 {
		t.Fatalf("expected defaults, got %+v", cfg.Viewer)
	}

	path := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(path, []byte("viewer:\n  pan_step: 40\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvPdftoppm, "/opt/poppler/bin/pdftoppm")
	cfg, err = LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault env: %v", err)
	}
	if cfg.Viewer.PanStep != 40 {
		t.Fatalf("pan step = %v, want 40", cfg.Viewer.PanStep)
	}
	if cfg.Render.Pdftoppm != "/opt/poppler/bin/pdftoppm" {
		t.Fatalf("pdftoppm = %q", cfg.Render.Pdftoppm)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("viewer: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"preview dpi", func(c *Config) { c.Render.PreviewDPI = 0 }},
		{"high dpi", func(c *Config) { c.Render.HighDPI = -1 }},
		{"export dpi", func(c *Config) { c.Export.DPI = 0 }},
		{"magnification low", func(c *Config) { c.Viewer.Magnification = 1 }},
		{"magnification high", func(c *Config) { c.Viewer.Magnification = 10.5 }},
		{"min selection", func(c *Config) { c.Viewer.MinSelection = 0 }},
		{"pan step", func(c *Config) { c.Viewer.PanStep = 0 }},
		{"debounce", func(c *Config) { c.Viewer.RedrawDebounce = -time.Second }},
		{"page size", func(c *Config) { c.NewPage.Size = "letter" }},
		{"arrow color", func(c *Config) { c.Export.ArrowColor = "pink" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSnapMagnification(t *testing.T) {
	tests := map[float64]float64{
		0:    1.5,
		1.5:  1.5,
		2.2:  2,
		2.3:  2.5,
		3:    3,
		9.9:  10,
		42:   10,
		-3.0: 1.5,
	}
	for in, want := range tests {
		if got := SnapMagnification(in); got != want {
			t.Fatalf("SnapMagnification(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPageSize(t *testing.T) {
	w, h, err := PageSize("a4", false)
	if err != nil || w != 595 || h != 842 {
		t.Fatalf("A4 portrait = %v x %v (%v)", w, h, err)
	}
	w, h, err = PageSize(PageA3, true)
	if err != nil || w != 1191 || h != 842 {
		t.Fatalf("A3 landscape = %v x %v (%v)", w, h, err)
	}
	if _, _, err := PageSize("B5", false); err == nil {
		t.Fatalf("expected error for unknown size")
	}
}

func TestParseHexColor(t *testing.T) {
	got, err := ParseHexColor("#cf6679")
	if err != nil {
		t.Fatalf("ParseHexColor: %v", err)
	}
	if want := (color.RGBA{R: 0xcf, G: 0x66, B: 0x79, A: 0xff}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	got, err = ParseHexColor("333")
	if err != nil {
		t.Fatalf("ParseHexColor short: %v", err)
	}
	if want := (color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
