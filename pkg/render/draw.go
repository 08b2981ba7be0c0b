package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/idphoto/pkg/tone"
)

// drawCover scales src to cover r and draws the visible part over dst.
func drawCover(dst *image.NRGBA, r image.Rectangle, src *tone.PixelBuffer, filter imaging.ResampleFilter) {
	fit := CoverFit(src.Width, src.Height, r.Dx(), r.Dy())
	rw := max(int(math.Round(fit.Width)), 1)
	rh := max(int(math.Round(fit.Height)), 1)

	scaled := imaging.Resize(src.ToImage(), rw, rh, filter)
	sp := image.Pt(-int(math.Round(fit.OffsetX)), -int(math.Round(fit.OffsetY)))
	draw.Draw(dst, r, scaled, sp, draw.Over)
}

// drawStretched scales src to exactly r and draws it over dst.
func drawStretched(dst *image.NRGBA, r image.Rectangle, src *tone.PixelBuffer, filter imaging.ResampleFilter) {
	scaled := imaging.Resize(src.ToImage(), r.Dx(), r.Dy(), filter)
	draw.Draw(dst, r, scaled, image.Point{}, draw.Over)
}

// strokeRect draws a rectangle outline of the given width just inside r.
func strokeRect(img *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	width = min(width, (r.Dx()+1)/2, (r.Dy()+1)/2)
	for i := 0; i < width; i++ {
		drawHLine(img, r.Min.Y+i, r.Min.X, r.Max.X-1, c)
		drawHLine(img, r.Max.Y-1-i, r.Min.X, r.Max.X-1, c)
		drawVLine(img, r.Min.X+i, r.Min.Y, r.Max.Y-1, c)
		drawVLine(img, r.Max.X-1-i, r.Min.Y, r.Max.Y-1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, b.Min.X)
	x1 = min(x1, b.Max.X-1)
	for x := x0; x <= x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, b.Min.Y)
	y1 = min(y1, b.Max.Y-1)
	for y := y0; y <= y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
