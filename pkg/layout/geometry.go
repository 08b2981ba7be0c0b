package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/idphoto/pkg/sizes"
)

// Orientation selects how the A4 sheet is turned.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// ParseOrientation accepts "portrait" or "landscape" (case-insensitive).
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case Portrait, "":
		return Portrait, nil
	case Landscape:
		return Landscape, nil
	default:
		return "", fmt.Errorf("unknown orientation %q (use portrait or landscape)", s)
	}
}

// Geometry describes the page and the packing policy, in millimeters.
type Geometry struct {
	PageWidthMM  float64 `json:"page_width_mm"`
	PageHeightMM float64 `json:"page_height_mm"`
	MarginMM     float64 `json:"margin_mm"`
	GapMM        float64 `json:"gap_mm"`
}

// PortraitA4 returns a 210x297mm page with the default margin and gap.
func PortraitA4() Geometry {
	return Geometry{
		PageWidthMM:  sizes.A4ShortMM,
		PageHeightMM: sizes.A4LongMM,
		MarginMM:     sizes.DefaultMarginMM,
		GapMM:        sizes.DefaultGapMM,
	}
}

// LandscapeA4 returns a 297x210mm page with the default margin and gap.
func LandscapeA4() Geometry {
	return Geometry{
		PageWidthMM:  sizes.A4LongMM,
		PageHeightMM: sizes.A4ShortMM,
		MarginMM:     sizes.DefaultMarginMM,
		GapMM:        sizes.DefaultGapMM,
	}
}

// GeometryFor returns the default A4 geometry for o.
func GeometryFor(o Orientation) Geometry {
	if o == Landscape {
		return LandscapeA4()
	}
	return PortraitA4()
}

// WithSpacing returns a copy of g with margin and gap replaced.
func (g Geometry) WithSpacing(marginMM, gapMM float64) Geometry {
	g.MarginMM = marginMM
	g.GapMM = gapMM
	return g
}

// maxX and maxY are the right and bottom limits of the printable area.
func (g Geometry) maxX() float64 { return g.PageWidthMM - g.MarginMM }
func (g Geometry) maxY() float64 { return g.PageHeightMM - g.MarginMM }

// Fits reports whether a single photo of s can be placed on an empty page.
func (g Geometry) Fits(s sizes.Spec) bool {
	return g.MarginMM+s.WidthMM <= g.maxX()+Epsilon &&
		g.MarginMM+s.HeightMM <= g.maxY()+Epsilon
}

// Capacity returns how many photos of s fit one page in a regular grid
// (columns × rows over the printable area with the gap between cells).
func (g Geometry) Capacity(s sizes.Spec) (cols, rows int) {
	availW := g.PageWidthMM - 2*g.MarginMM
	availH := g.PageHeightMM - 2*g.MarginMM
	cols = int(math.Floor((availW + g.GapMM) / (s.WidthMM + g.GapMM)))
	rows = int(math.Floor((availH + g.GapMM) / (s.HeightMM + g.GapMM)))
	return max(cols, 0), max(rows, 0)
}
