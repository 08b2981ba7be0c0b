// Package sizes holds the fixed catalog of printable photo sizes and the
// page geometry defaults used by the sheet layout.
package sizes

import (
	"fmt"
	"strings"
)

// ID identifies a catalog photo size, named after its centimeter dimensions.
type ID string

// Catalog size identifiers in canonical order.
const (
	Size2x3   ID = "2x3"
	Size3x4   ID = "3x4"
	Size4x6   ID = "4x6"
	Size6x9   ID = "6x9"
	Size9x12  ID = "9x12"
	Size10x15 ID = "10x15"
	Size13x18 ID = "13x18"
	Size15x21 ID = "15x21"
	Size20x30 ID = "20x30"
)

// Spec is one catalog entry. Photos are always portrait: WidthMM < HeightMM.
type Spec struct {
	ID       ID      `json:"id"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// Area returns the photo area in square millimeters.
func (s Spec) Area() float64 {
	return s.WidthMM * s.HeightMM
}

// Page geometry defaults, in millimeters.
const (
	A4ShortMM = 210.0
	A4LongMM  = 297.0

	DefaultMarginMM = 10.0
	DefaultGapMM    = 2.0
)

// catalog is ordered by strictly increasing width.
var catalog = [...]Spec{
	{Size2x3, 20, 30},
	{Size3x4, 30, 40},
	{Size4x6, 40, 60},
	{Size6x9, 60, 90},
	{Size9x12, 90, 120},
	{Size10x15, 100, 150},
	{Size13x18, 130, 180},
	{Size15x21, 150, 210},
	{Size20x30, 200, 300},
}

// All returns the catalog in canonical order. The returned slice is a copy.
func All() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog[:])
	return out
}

// IDs returns the catalog identifiers in canonical order.
func IDs() []ID {
	ids := make([]ID, len(catalog))
	for i, s := range catalog {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the spec for id.
func Lookup(id ID) (Spec, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

// MustLookup is like Lookup but panics on an unknown id.
func MustLookup(id ID) Spec {
	s, ok := Lookup(id)
	if !ok {
		panic(fmt.Sprintf("sizes: unknown size %q", id))
	}
	return s
}

// Index returns the canonical position of id, or -1.
func Index(id ID) int {
	for i, s := range catalog {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Parse accepts an identifier such as "3x4" (case and surrounding spaces
// are ignored; "3X4" and "3×4" are accepted too).
func Parse(s string) (ID, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "×", "x")
	id := ID(norm)
	if _, ok := Lookup(id); !ok {
		return "", fmt.Errorf("unknown photo size %q", s)
	}
	return id, nil
}

// Dimensions returns the size in millimeters.
func (id ID) Dimensions() (width, height float64, ok bool) {
	s, ok := Lookup(id)
	return s.WidthMM, s.HeightMM, ok
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}
