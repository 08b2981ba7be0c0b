// Package tone implements the tone adjustment engine.
//
// Grading is a fixed four-stage per-pixel transform (shadows/highlights,
// brightness, contrast, saturation) evaluated in float64 and quantized once
// at the end. Regional adjustments are graded from the untouched source and
// composited over the running result through a radial feather mask, one
// region at a time in creation order.
//
// Every function here is pure: inputs are never modified and outputs depend
// only on pixel values, so a preview and a full-resolution export of the
// same picture grade identically.
package tone

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelMinPixels is the buffer size above which rows are graded by
// several goroutines.
const parallelMinPixels = 256 * 256

// GradeGlobal applies adj to every pixel of buf and returns a new buffer.
// Alpha is copied unchanged.
func GradeGlobal(buf *PixelBuffer, adj Adjustment) *PixelBuffer {
	out := buf.Clone()
	if adj.IsIdentity() {
		return out
	}
	f := adj.factors()
	forRows(buf.Width, buf.Height, func(y0, y1 int) {
		for i := 4 * y0 * buf.Width; i < 4*y1*buf.Width; i += 4 {
			r, g, b := f.apply(float64(buf.Pix[i]), float64(buf.Pix[i+1]), float64(buf.Pix[i+2]))
			out.Pix[i+0] = toByte(r)
			out.Pix[i+1] = toByte(g)
			out.Pix[i+2] = toByte(b)
		}
	})
	return out
}

// GradeWithRegions grades buf with global, then composites each region in
// order. A region's pixels are graded from buf with Combine(global, region)
// and blended as mask·region + (1−mask)·result. Pixels where the mask is 0
// are left exactly as the previous step produced them.
func GradeWithRegions(buf *PixelBuffer, global Adjustment, regions []RegionalAdjustment) *PixelBuffer {
	result := GradeGlobal(buf, global)

	// Each region reads the result of the previous one; this loop must stay
	// sequential.
	for _, region := range regions {
		compositeRegion(result, buf, global, region)
	}
	return result
}

func compositeRegion(result, src *PixelBuffer, global Adjustment, region RegionalAdjustment) {
	f := Combine(global, region.Adjustment).factors()
	mask := newRadialMask(region, src.Width, src.Height)
	y0, y1 := mask.rowSpan(src.Height)

	forRows(src.Width, y1-y0, func(a, b int) {
		for y := y0 + a; y < y0+b; y++ {
			for x := 0; x < src.Width; x++ {
				m := mask.at(x, y)
				if m == 0 {
					continue
				}
				i := src.offset(x, y)
				r, g, bl := f.apply(float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]))
				result.Pix[i+0] = blend(toByte(r), result.Pix[i+0], m)
				result.Pix[i+1] = blend(toByte(g), result.Pix[i+1], m)
				result.Pix[i+2] = blend(toByte(bl), result.Pix[i+2], m)
			}
		}
	})
}

func blend(over, under uint8, m float64) uint8 {
	if m >= 1 {
		return over
	}
	return toByte(m*float64(over) + (1-m)*float64(under))
}

// forRows calls fn over [0, rows) split into bands. Small buffers are
// processed on the calling goroutine. Bands never overlap, so fn may write
// its rows without locking.
func forRows(width, rows int, fn func(y0, y1 int)) {
	if rows <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if width*rows < parallelMinPixels || workers < 2 {
		fn(0, rows)
		return
	}

	band := (rows + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for y := 0; y < rows; y += band {
		y0, y1 := y, min(y+band, rows)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}
