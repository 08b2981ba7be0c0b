package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Delay() != 3*time.Second {
		t.Errorf("default delay %v", c.Delay())
	}
	g := c.Geometry()
	if g.PageWidthMM != 210 || g.PageHeightMM != 297 || g.MarginMM != 10 || g.GapMM != 2 {
		t.Errorf("default geometry %+v", g)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.json", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			c.Layout.Orientation = "landscape"
			c.Layout.MarginMM = 5
			c.Replacement.Backend = "llamacpp"
			c.Replacement.ServerURL = "http://localhost:8080"
			c.Output.Quality = 80

			path := filepath.Join(dir, "nested", name)
			if err := c.SaveToFile(path); err != nil {
				t.Fatalf("SaveToFile: %v", err)
			}
			got, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile: %v", err)
			}
			if diff := cmp.Diff(c, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if g := got.Geometry(); g.PageWidthMM != 297 || g.MarginMM != 5 {
				t.Errorf("geometry %+v", g)
			}
		})
	}
}

func TestLoadPartialTOMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	data := "[replacement]\ndelay_ms = 500\ndefault_color = \"#0099ff\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.Delay() != 500*time.Millisecond || c.Replacement.DefaultColor != "#0099ff" {
		t.Errorf("values not read: %+v", c.Replacement)
	}
	if c.Replacement.MaxDimension != 1024 || c.Output.Quality != 95 {
		t.Error("missing keys should keep defaults")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.toml")
	_ = os.WriteFile(bad, []byte("[layout\nmargin_mm = "), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("malformed TOML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative margin", func(c *Config) { c.Layout.MarginMM = -1 }},
		{"bad orientation", func(c *Config) { c.Layout.Orientation = "diagonal" }},
		{"zero dpi", func(c *Config) { c.Render.SheetDPI = 0 }},
		{"unknown backend", func(c *Config) { c.Replacement.Backend = "ollama" }},
		{"bad color", func(c *Config) { c.Replacement.DefaultColor = "purple" }},
		{"quality", func(c *Config) { c.Output.Quality = 0 }},
		{"max dimension", func(c *Config) { c.Replacement.MaxDimension = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSheetPxPerMM(t *testing.T) {
	c := Default()
	c.Render.SheetDPI = 254
	if got := c.SheetPxPerMM(); math.Abs(got-10) > 1e-9 {
		t.Errorf("SheetPxPerMM = %v, want 10", got)
	}
}
