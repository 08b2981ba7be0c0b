package render

import (
	"image/color"
	"math"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/sizes"
	"github.com/menta2k/idphoto/pkg/tone"
)

// SinglePixelSize returns the pixel size of one photo of spec at pxPerCM.
func SinglePixelSize(spec sizes.Spec, pxPerCM float64) (int, int) {
	w := int(math.Round(spec.WidthMM / 10 * pxPerCM))
	h := int(math.Round(spec.HeightMM / 10 * pxPerCM))
	return w, h
}

// ExportSingle renders one photo of spec at pxPerCM: the graded raster is
// cover-fitted and the frame, if any, is stretched over it. No cut guide is
// drawn.
func (r *Renderer) ExportSingle(graded *tone.PixelBuffer, spec sizes.Spec, frame *tone.PixelBuffer, pxPerCM float64) (*tone.PixelBuffer, error) {
	if graded == nil || graded.Width == 0 || graded.Height == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "graded raster is empty")
	}
	if pxPerCM <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pixel density must be positive, got %v", pxPerCM)
	}

	w, h := SinglePixelSize(spec, pxPerCM)
	out := tone.NewFilled(w, h, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	dst := out.ToImage()

	drawCover(dst, out.Bounds(), graded, r.Filter)
	if frame != nil && frame.Width > 0 && frame.Height > 0 {
		drawStretched(dst, out.Bounds(), frame, r.Filter)
	}
	return out, nil
}

// ExportSingle renders one photo with the default Renderer.
func ExportSingle(graded *tone.PixelBuffer, spec sizes.Spec, frame *tone.PixelBuffer, pxPerCM float64) (*tone.PixelBuffer, error) {
	return New().ExportSingle(graded, spec, frame, pxPerCM)
}
