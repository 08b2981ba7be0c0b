package tone

import "math"

// Feather mask stops: opacity 1 at the center, 0.8 at half the radius and
// 0 at the radius. Opacity is interpolated linearly between stops.
const (
	maskInner = 1.0
	maskMid   = 0.8
)

// MaskAt returns the feather opacity at distance d from the center of a
// circle of radius r. It is exactly 0 for d >= r.
func MaskAt(d, r float64) float64 {
	if r <= 0 || d >= r {
		return 0
	}
	t := d / r
	if t <= 0.5 {
		return maskInner + (maskMid-maskInner)*(t/0.5)
	}
	return maskMid * (1 - (t-0.5)/0.5)
}

// radialMask evaluates the feather mask of a region at pixel centers.
type radialMask struct {
	cx, cy, r float64
}

func newRadialMask(region RegionalAdjustment, w, h int) radialMask {
	return radialMask{
		cx: region.CenterX * float64(w),
		cy: region.CenterY * float64(h),
		r:  region.Radius * float64(w),
	}
}

func (m radialMask) at(x, y int) float64 {
	dx := float64(x) + 0.5 - m.cx
	dy := float64(y) + 0.5 - m.cy
	return MaskAt(math.Hypot(dx, dy), m.r)
}

// rowSpan returns the rows [y0, y1) the mask can touch.
func (m radialMask) rowSpan(h int) (int, int) {
	y0 := int(math.Floor(m.cy - m.r - 0.5))
	y1 := int(math.Ceil(m.cy+m.r+0.5)) + 1
	return max(y0, 0), min(y1, h)
}
