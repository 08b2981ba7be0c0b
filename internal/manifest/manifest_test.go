package manifest

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/tone"
)

const sample = `
orientation: landscape
mode: fill_page
margin_mm: 5
background: "#0099FF"
select: bob
print:
  3x4: 4
  "4X6": 1
images:
  - name: alice
    source: alice.png
    crop: {x: 0.25, y: 0, w: 0.5, h: 1}
    adjustments: {brightness: 110, shadows: 15}
    regions:
      - {x: 0.4, y: 0.3, brightness: 120}
      - {id: fixed, x: 0.6, y: 0.3, radius: 0.2}
    outfit: suit
  - source: photos/bob.png
outfits:
  suit: suit.png
`

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 120, 90, 60, 255
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample), "/jobs")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if m.Images[1].Name != "bob" {
		t.Errorf("name should default to the file name, got %q", m.Images[1].Name)
	}
	want := tone.Adjustment{Brightness: 110, Contrast: 100, Saturation: 100, Shadows: 15}
	if diff := cmp.Diff(want, m.Images[0].Adjustments); diff != "" {
		t.Errorf("partial adjustments (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tone.DefaultAdjustment(), m.Images[1].Adjustments); diff != "" {
		t.Errorf("missing adjustments should be identity (-want +got):\n%s", diff)
	}

	r0, r1 := m.Images[0].Regions[0], m.Images[0].Regions[1]
	if r0.Radius != tone.DefaultRegionRadius || r0.Brightness != 120 || r0.Contrast != 100 || r0.ID == "" {
		t.Errorf("region defaults not applied: %+v", r0)
	}
	if r1.ID != "fixed" || r1.Radius != 0.2 || r1.Brightness != 100 {
		t.Errorf("explicit region fields lost: %+v", r1)
	}

	cfg, err := m.PrintConfig()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(layout.PrintConfig{"3x4": 4, "4x6": 1}, cfg); diff != "" {
		t.Errorf("print config (-want +got):\n%s", diff)
	}
	if m.LayoutMode() != layout.ModeFillPage {
		t.Errorf("mode %q", m.LayoutMode())
	}

	g := m.Geometry(layout.PortraitA4())
	if g.PageWidthMM != 297 || g.MarginMM != 5 || g.GapMM != 2 {
		t.Errorf("geometry %+v", g)
	}
	if got := m.Resolve("photos/bob.png"); got != filepath.Join("/jobs", "photos/bob.png") {
		t.Errorf("Resolve = %q", got)
	}
	if got := m.Resolve("https://example.com/a.png"); got != "https://example.com/a.png" {
		t.Errorf("URL changed: %q", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code errors.Code
	}{
		{"zero total", "print: {3x4: 0}\nimages: [{source: a.png}]", errors.ErrCodeValidation},
		{"no images", "print: {3x4: 1}", errors.ErrCodeValidation},
		{"unknown size", "print: {5x5: 1}\nimages: [{source: a.png}]", errors.ErrCodeInvalidInput},
		{"unknown outfit", "print: {3x4: 1}\nimages: [{source: a.png, outfit: coat}]", errors.ErrCodeNotFound},
		{"duplicate name", "print: {3x4: 1}\nimages: [{source: a.png}, {source: b/a.png}]", errors.ErrCodeInvalidInput},
		{"bad color", "background: teal\nprint: {3x4: 1}\nimages: [{source: a.png}]", errors.ErrCodeInvalidInput},
		{"malformed", "print: [", errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), ".")
			if !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}

	if _, err := Parse([]byte("orientation: sideways\nprint: {3x4: 1}\nimages: [{source: a.png}]"), "."); err == nil {
		t.Error("bad orientation should fail")
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "alice.png"), 40, 30)
	writePNG(t, filepath.Join(dir, "photos", "bob.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "suit.png"), 10, 10)
	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, ids, err := m.Build(context.Background(), processing.NewProcessor())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if p.Len() != 2 || p.Selected() != ids["bob"] {
		t.Fatalf("project has %d images, selected %q", p.Len(), p.Selected())
	}
	alice, _ := p.Image(ids["alice"])
	if alice.Cropped == nil || alice.Cropped.Width != 20 || alice.Cropped.Height != 30 {
		t.Errorf("crop not applied: %+v", alice.Cropped)
	}
	if alice.Regions.Len() != 2 || alice.OutfitID == "" || alice.Adjustment.Brightness != 110 {
		t.Errorf("image state not applied: regions=%d outfit=%q adj=%+v", alice.Regions.Len(), alice.OutfitID, alice.Adjustment)
	}
	if refs := p.SheetRefs(m.LayoutMode()); len(refs) != 1 || refs[0] != ids["bob"] {
		t.Errorf("fill-page refs %v", refs)
	}

	frame, err := m.LoadFrame(context.Background(), processing.NewProcessor())
	if err != nil || frame != nil {
		t.Errorf("no frame configured: %v %v", frame, err)
	}
}

func TestBuildMissingSource(t *testing.T) {
	m, err := Parse([]byte("print: {3x4: 1}\nimages: [{source: missing.png}]"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Build(context.Background(), processing.NewProcessor()); err == nil {
		t.Error("missing source should fail")
	}
}
