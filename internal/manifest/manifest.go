// Package manifest reads YAML print jobs.
//
//	orientation: portrait
//	mode: mixed
//	background: "#ffffff"
//	print:
//	  3x4: 4
//	  4x6: 2
//	images:
//	  - name: alice
//	    source: photos/alice.jpg
//	    crop: {x: 0.1, y: 0.05, w: 0.8, h: 0.9}
//	    adjustments: {brightness: 110, shadows: 15}
//	    regions:
//	      - {x: 0.5, y: 0.35, radius: 0.2, brightness: 120}
//	    outfit: suit
//	outfits:
//	  suit: outfits/suit.png
//
// Relative paths resolve against the manifest's directory.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/project"
	"github.com/menta2k/idphoto/pkg/replacement"
	"github.com/menta2k/idphoto/pkg/sizes"
	"github.com/menta2k/idphoto/pkg/tone"
)

// Manifest is one print job.
type Manifest struct {
	Orientation string            `yaml:"orientation"`
	Mode        string            `yaml:"mode"`
	MarginMM    *float64          `yaml:"margin_mm,omitempty"`
	GapMM       *float64          `yaml:"gap_mm,omitempty"`
	Background  string            `yaml:"background,omitempty"`
	Prompt      string            `yaml:"prompt,omitempty"`
	Frame       string            `yaml:"frame,omitempty"`
	Select      string            `yaml:"select,omitempty"`
	Print       map[string]int    `yaml:"print"`
	Images      []Image           `yaml:"images"`
	Outfits     map[string]string `yaml:"outfits,omitempty"`

	dir string
}

// Image is one photo of the job. Adjustments default to the identity.
type Image struct {
	Name        string          `yaml:"name"`
	Source      string          `yaml:"source"`
	Crop        *processing.Box `yaml:"crop,omitempty"`
	Adjustments tone.Adjustment `yaml:"adjustments"`
	Regions     []Region        `yaml:"regions,omitempty"`
	Outfit      string          `yaml:"outfit,omitempty"`
}

// UnmarshalYAML fills unset adjustment fields with identity values.
func (im *Image) UnmarshalYAML(n *yaml.Node) error {
	type plain Image
	p := plain{Adjustments: tone.DefaultAdjustment()}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*im = Image(p)
	return nil
}

// Region is a regional adjustment. Unset fields take the values of a newly
// placed region.
type Region tone.RegionalAdjustment

// UnmarshalYAML decodes a region over the defaults of tone.NewRegion.
func (r *Region) UnmarshalYAML(n *yaml.Node) error {
	v := tone.NewRegion(0.5, 0.5)
	if err := n.Decode(&v); err != nil {
		return err
	}
	*r = Region(v)
	return nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates a manifest. dir is the base for relative paths.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse manifest")
	}
	m.dir = dir

	for i := range m.Images {
		if m.Images[i].Name == "" {
			base := filepath.Base(m.Images[i].Source)
			m.Images[i].Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks references and the print configuration. A job whose
// total quantity is zero is a VALIDATION error.
func (m *Manifest) Validate() error {
	if _, err := layout.ParseOrientation(m.Orientation); err != nil {
		return err
	}
	if _, err := layout.ParseMode(m.Mode); err != nil {
		return err
	}
	if m.Background != "" && !replacement.ValidateColor(m.Background) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", m.Background)
	}
	if len(m.Images) == 0 {
		return errors.Validation("manifest lists no images")
	}

	seen := make(map[string]bool, len(m.Images))
	for _, im := range m.Images {
		if im.Source == "" {
			return errors.New(errors.ErrCodeInvalidInput, "image %q has no source", im.Name)
		}
		if seen[im.Name] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate image name %q", im.Name)
		}
		seen[im.Name] = true
		if im.Outfit != "" {
			if _, ok := m.Outfits[im.Outfit]; !ok {
				return errors.New(errors.ErrCodeNotFound, "image %q uses unknown outfit %q", im.Name, im.Outfit)
			}
		}
	}
	if m.Select != "" && !seen[m.Select] {
		return errors.New(errors.ErrCodeNotFound, "selected image %q is not listed", m.Select)
	}

	cfg, err := m.PrintConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// PrintConfig converts the print section to a layout.PrintConfig.
func (m *Manifest) PrintConfig() (layout.PrintConfig, error) {
	cfg := make(layout.PrintConfig, len(m.Print))
	for key, q := range m.Print {
		id, err := sizes.Parse(key)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "print section")
		}
		cfg[id] = q
	}
	return cfg, nil
}

// LayoutMode returns the parsed mode.
func (m *Manifest) LayoutMode() layout.Mode {
	mode, _ := layout.ParseMode(m.Mode)
	return mode
}

// Geometry returns the page geometry, with manifest overrides applied over
// base spacing.
func (m *Manifest) Geometry(base layout.Geometry) layout.Geometry {
	o, _ := layout.ParseOrientation(m.Orientation)
	g := layout.GeometryFor(o).WithSpacing(base.MarginMM, base.GapMM)
	if m.MarginMM != nil {
		g.MarginMM = *m.MarginMM
	}
	if m.GapMM != nil {
		g.GapMM = *m.GapMM
	}
	return g
}

// Resolve makes p absolute relative to the manifest directory. URLs and
// absolute paths are returned unchanged.
func (m *Manifest) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return filepath.Join(m.dir, p)
}

// Build loads every raster and returns the populated project together with
// a map from image name to project ID.
func (m *Manifest) Build(ctx context.Context, proc *processing.Processor) (*project.Project, map[string]string, error) {
	p := project.New()
	ids := make(map[string]string, len(m.Images))

	outfits := make(map[string]string, len(m.Outfits))
	for name, src := range m.Outfits {
		buf, err := proc.LoadBuffer(ctx, m.Resolve(src))
		if err != nil {
			return nil, nil, fmt.Errorf("outfit %q: %w", name, err)
		}
		outfits[name] = p.AddOutfit(name, buf)
	}

	for _, im := range m.Images {
		img, err := proc.LoadImageSmart(ctx, m.Resolve(im.Source))
		if err != nil {
			return nil, nil, fmt.Errorf("image %q: %w", im.Name, err)
		}
		id := p.AddImage(im.Name, tone.FromImage(img))
		ids[im.Name] = id

		if im.Crop != nil && !im.Crop.IsZero() {
			cropped, err := proc.CropToBox(img, *im.Crop)
			if err != nil {
				return nil, nil, fmt.Errorf("image %q: %w", im.Name, err)
			}
			if err := p.SetCropped(id, tone.FromImage(cropped)); err != nil {
				return nil, nil, err
			}
		}
		if err := p.SetAdjustment(id, im.Adjustments); err != nil {
			return nil, nil, err
		}
		regions := make([]tone.RegionalAdjustment, len(im.Regions))
		for i, r := range im.Regions {
			regions[i] = tone.RegionalAdjustment(r)
		}
		if err := p.SetRegions(id, regions); err != nil {
			return nil, nil, err
		}
		if im.Outfit != "" {
			if err := p.AssignOutfit(id, outfits[im.Outfit]); err != nil {
				return nil, nil, err
			}
		}
	}

	if m.Select != "" {
		if err := p.Select(ids[m.Select]); err != nil {
			return nil, nil, err
		}
	}
	return p, ids, nil
}

// LoadFrame decodes the frame overlay, or returns nil when none is set.
func (m *Manifest) LoadFrame(ctx context.Context, proc *processing.Processor) (*tone.PixelBuffer, error) {
	if m.Frame == "" {
		return nil, nil
	}
	return proc.LoadBuffer(ctx, m.Resolve(m.Frame))
}
