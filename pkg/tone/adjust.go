package tone

import "math"

// Adjustment holds the five global tone controls.
//
// Brightness, Contrast and Saturation are percentages where 100 is the
// identity; Shadows and Highlights are signed offsets where 0 is the
// identity. Values outside the documented ranges are applied as given.
type Adjustment struct {
	Brightness float64 `json:"brightness" yaml:"brightness" toml:"brightness"`
	Contrast   float64 `json:"contrast" yaml:"contrast" toml:"contrast"`
	Saturation float64 `json:"saturation" yaml:"saturation" toml:"saturation"`
	Shadows    float64 `json:"shadows" yaml:"shadows" toml:"shadows"`
	Highlights float64 `json:"highlights" yaml:"highlights" toml:"highlights"`
}

// DefaultAdjustment returns the identity adjustment {100, 100, 100, 0, 0}.
func DefaultAdjustment() Adjustment {
	return Adjustment{Brightness: 100, Contrast: 100, Saturation: 100}
}

// IsIdentity reports whether a leaves every pixel unchanged.
func (a Adjustment) IsIdentity() bool {
	return a.Brightness == 100 && a.Contrast == 100 && a.Saturation == 100 &&
		a.Shadows == 0 && a.Highlights == 0
}

// Combine merges a global and a regional adjustment: percentages multiply,
// offsets add and are clamped to [-100, 100].
func Combine(global, region Adjustment) Adjustment {
	return Adjustment{
		Brightness: (global.Brightness / 100) * (region.Brightness / 100) * 100,
		Contrast:   (global.Contrast / 100) * (region.Contrast / 100) * 100,
		Saturation: (global.Saturation / 100) * (region.Saturation / 100) * 100,
		Shadows:    clampRange(global.Shadows+region.Shadows, -100, 100),
		Highlights: clampRange(global.Highlights+region.Highlights, -100, 100),
	}
}

// factors are the per-stage multipliers derived from an Adjustment.
type factors struct {
	brightness, contrast, saturation float64
	shadows, highlights              float64
}

func (a Adjustment) factors() factors {
	return factors{
		brightness: a.Brightness / 100,
		contrast:   a.Contrast / 100,
		saturation: a.Saturation / 100,
		shadows:    a.Shadows / 100,
		highlights: a.Highlights / 100,
	}
}

// apply runs the four stages on one pixel. Intermediate values are not
// clamped; the caller clamps and rounds once at the end.
func (f factors) apply(r, g, b float64) (float64, float64, float64) {
	if f.shadows != 0 || f.highlights != 0 {
		n := luma(r, g, b) / 255
		delta := 0.0
		if f.shadows != 0 {
			delta += f.shadows * math.Pow(1-n, 3) * 255
		}
		if f.highlights != 0 {
			delta += f.highlights * math.Pow(n, 3) * 255
		}
		r += delta
		g += delta
		b += delta
	}

	if f.brightness != 1 {
		r *= f.brightness
		g *= f.brightness
		b *= f.brightness
	}

	if f.contrast != 1 {
		r = (r-128)*f.contrast + 128
		g = (g-128)*f.contrast + 128
		b = (b-128)*f.contrast + 128
	}

	if f.saturation != 1 {
		gray := luma(r, g, b)
		r = gray + (r-gray)*f.saturation
		g = gray + (g-gray)*f.saturation
		b = gray + (b-gray)*f.saturation
	}

	return r, g, b
}

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// toByte clamps v to [0,255] and rounds half to even, matching how 8-bit
// canvas storage quantizes.
func toByte(v float64) uint8 {
	return uint8(math.RoundToEven(clampRange(v, 0, 255)))
}
