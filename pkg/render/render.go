// Package render composites graded photos onto page rasters.
//
// A page is drawn at any pixel density: item rectangles are converted from
// millimeters by rounding, each graded raster is cover-fitted into its
// rectangle, an optional frame is stretched over it and a black cut guide is
// stroked on top. The same page rendered at k and 2k pixels per millimeter
// has the same geometry at twice the pixel counts.
package render

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/tone"
)

const (
	// DPI300PxPerMM is the sheet export density, 300 dots per inch.
	DPI300PxPerMM = 300 / 25.4

	// PxPerCMExport is the density of a single-photo export.
	PxPerCMExport = 300

	// DefaultStrokeMM is one CSS pixel (1/96 inch), the width of the cut guide.
	DefaultStrokeMM = 25.4 / 96
)

// RasterSource returns the graded raster for an image reference.
type RasterSource func(imageRef string) (*tone.PixelBuffer, bool)

// Renderer draws pages and single-photo exports.
type Renderer struct {
	// StrokeMM is the cut guide width; the stroke is never thinner than 1px.
	StrokeMM float64
	// Filter is the resampling filter for photos and frames.
	Filter imaging.ResampleFilter
	// Parallelism bounds the number of pages rendered at once by RenderPages.
	Parallelism int
}

// New returns a Renderer with the default stroke and Lanczos resampling.
func New() *Renderer {
	return &Renderer{
		StrokeMM:    DefaultStrokeMM,
		Filter:      imaging.Lanczos,
		Parallelism: 2,
	}
}

// RenderPage renders page with the default Renderer.
func RenderPage(page layout.Page, gradedRasterOf RasterSource, frame *tone.PixelBuffer, pxPerMM float64) (*tone.PixelBuffer, error) {
	return New().RenderPage(page, gradedRasterOf, frame, pxPerMM)
}

// ItemRect converts an item's millimeter rectangle to pixels at pxPerMM.
func ItemRect(it layout.PlacedItem, pxPerMM float64) image.Rectangle {
	x := int(math.Round(it.XMM * pxPerMM))
	y := int(math.Round(it.YMM * pxPerMM))
	w := int(math.Round(it.WidthMM * pxPerMM))
	h := int(math.Round(it.HeightMM * pxPerMM))
	return image.Rect(x, y, x+w, y+h)
}

// PageSize returns the pixel size of a page at pxPerMM, rounded up.
func PageSize(page layout.Page, pxPerMM float64) (int, int) {
	return int(math.Ceil(page.WidthMM * pxPerMM)), int(math.Ceil(page.HeightMM * pxPerMM))
}

// StrokeWidth returns the cut guide width in pixels at pxPerMM.
func (r *Renderer) StrokeWidth(pxPerMM float64) int {
	return max(1, int(math.Round(pxPerMM*r.StrokeMM)))
}

// RenderPage draws every item of page onto a white raster.
// Items are drawn in placement order. A reference without a graded raster
// fails the page with a NOT_FOUND error.
func (r *Renderer) RenderPage(page layout.Page, gradedRasterOf RasterSource, frame *tone.PixelBuffer, pxPerMM float64) (*tone.PixelBuffer, error) {
	if pxPerMM <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "pixel density must be positive, got %v", pxPerMM)
	}

	w, h := PageSize(page, pxPerMM)
	out := tone.NewFilled(w, h, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	dst := out.ToImage()
	stroke := r.StrokeWidth(pxPerMM)
	black := color.NRGBA{A: 255}

	for _, it := range page.Items {
		raster, ok := gradedRasterOf(it.ImageRef)
		if !ok || raster == nil {
			return nil, errors.New(errors.ErrCodeNotFound, "no graded raster for image %q on page %d", it.ImageRef, page.Index)
		}
		if raster.Width == 0 || raster.Height == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "graded raster for image %q is empty", it.ImageRef)
		}

		rect := ItemRect(it, pxPerMM)
		if rect.Empty() {
			continue
		}

		drawCover(dst, rect, raster, r.Filter)
		if frame != nil && frame.Width > 0 && frame.Height > 0 {
			drawStretched(dst, rect, frame, r.Filter)
		}
		strokeRect(dst, rect, stroke, black)
	}

	return out, nil
}

// RenderPages renders pages concurrently, each into its own raster.
// The result is indexed like pages. The first failure cancels the rest.
func (r *Renderer) RenderPages(ctx context.Context, pages []layout.Page, gradedRasterOf RasterSource, frame *tone.PixelBuffer, pxPerMM float64) ([]*tone.PixelBuffer, error) {
	out := make([]*tone.PixelBuffer, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Parallelism, 1))
	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := r.RenderPage(page, gradedRasterOf, frame, pxPerMM)
			if err != nil {
				return err
			}
			out[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
