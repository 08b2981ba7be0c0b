package render

// Fit is the placement of a source raster scaled to cover a target
// rectangle, in target pixels relative to the rectangle's top-left corner.
// Offsets are zero or negative; the overflow is split evenly on both sides.
type Fit struct {
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// CoverFit scales a srcW×srcH raster uniformly so it fully covers a dstW×dstH
// rectangle. A source wider than the target fills the height and overflows
// horizontally; otherwise it fills the width and overflows vertically.
func CoverFit(srcW, srcH, dstW, dstH int) Fit {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Fit{}
	}
	imgRatio := float64(srcW) / float64(srcH)
	targetRatio := float64(dstW) / float64(dstH)

	if imgRatio > targetRatio {
		w := float64(dstH) * imgRatio
		return Fit{Width: w, Height: float64(dstH), OffsetX: (float64(dstW) - w) / 2}
	}
	h := float64(dstW) / imgRatio
	return Fit{Width: float64(dstW), Height: h, OffsetY: (float64(dstH) - h) / 2}
}

// Scale multiplies every field of f by k.
func (f Fit) Scale(k float64) Fit {
	return Fit{Width: f.Width * k, Height: f.Height * k, OffsetX: f.OffsetX * k, OffsetY: f.OffsetY * k}
}
