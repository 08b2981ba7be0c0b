// Package pdfsheet writes laid-out photo sheets as PDF documents.
//
// Every layout page becomes one PDF page of the exact physical size. The
// page is rendered to a raster at print density and embedded losslessly,
// and each photo gets a thin vector outline on top as a cut guide.
package pdfsheet

import (
	"context"
	"io"
	"os"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"
	pdfimage "seehuhn.de/go/pdf/graphics/image"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/render"
	"github.com/menta2k/idphoto/pkg/tone"
)

// PointsPerMM converts millimeters to PDF points.
const PointsPerMM = 72 / 25.4

// DefaultOutlineWidth is the cut guide line width in points.
const DefaultOutlineWidth = 0.25

// Options control PDF output.
type Options struct {
	// PxPerMM is the raster density. Zero means 300 DPI.
	PxPerMM float64
	// Outline draws a vector rectangle around every photo.
	Outline bool
	// OutlineWidth is the outline width in points.
	OutlineWidth float64
	Renderer     *render.Renderer
}

// DefaultOptions renders at 300 DPI with outlines.
func DefaultOptions() Options {
	return Options{
		PxPerMM:      render.DPI300PxPerMM,
		Outline:      true,
		OutlineWidth: DefaultOutlineWidth,
	}
}

// Write renders pages and writes them to w as one PDF document. It returns
// the number of pages written.
func Write(ctx context.Context, w io.Writer, pages []layout.Page, src render.RasterSource, frame *tone.PixelBuffer, opts Options) (int, error) {
	if len(pages) == 0 {
		return 0, errors.Validation("no pages to write")
	}
	if opts.PxPerMM <= 0 {
		opts.PxPerMM = render.DPI300PxPerMM
	}
	if opts.OutlineWidth <= 0 {
		opts.OutlineWidth = DefaultOutlineWidth
	}
	r := opts.Renderer
	if r == nil {
		r = render.New()
	}

	rasters, err := r.RenderPages(ctx, pages, src, frame, opts.PxPerMM)
	if err != nil {
		return 0, err
	}

	doc, err := document.WriteMultiPage(w, mediaBox(pages[0]), pdf.V1_7, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "create pdf")
	}

	for i, pg := range pages {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		page := doc.AddPage()
		page.SetPageSize(mediaBox(pg))

		wPt, hPt := pg.WidthMM*PointsPerMM, pg.HeightMM*PointsPerMM
		page.PushGraphicsState()
		page.Transform(matrix.Matrix{wPt, 0, 0, hPt, 0, 0})
		page.DrawXObject(&pdfimage.PNG{Data: rasters[i].ToImage()})
		page.PopGraphicsState()

		if opts.Outline && len(pg.Items) > 0 {
			page.SetLineWidth(opts.OutlineWidth)
			page.SetStrokeColor(color.DeviceGray(0))
			for _, it := range pg.Items {
				// PDF y grows upwards from the bottom edge.
				x := it.XMM * PointsPerMM
				y := (pg.HeightMM - it.YMM - it.HeightMM) * PointsPerMM
				page.Rectangle(x, y, it.WidthMM*PointsPerMM, it.HeightMM*PointsPerMM)
			}
			page.Stroke()
		}

		if err := page.Close(); err != nil {
			return i, errors.Wrap(errors.ErrCodeInternal, err, "write page %d", pg.Index)
		}
	}

	if err := doc.Close(); err != nil {
		return len(pages), errors.Wrap(errors.ErrCodeInternal, err, "close pdf")
	}
	return len(pages), nil
}

// WriteFile writes the document to path.
func WriteFile(ctx context.Context, path string, pages []layout.Page, src render.RasterSource, frame *tone.PixelBuffer, opts Options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := Write(ctx, f, pages, src, frame, opts)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return n, err
}

func mediaBox(p layout.Page) *pdf.Rectangle {
	return &pdf.Rectangle{URx: p.WidthMM * PointsPerMM, URy: p.HeightMM * PointsPerMM}
}
