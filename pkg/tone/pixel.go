package tone

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PixelBuffer is a row-major, 8-bit non-premultiplied RGBA raster.
// Grading functions never modify a buffer they receive.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a transparent w×h buffer.
func NewPixelBuffer(w, h int) *PixelBuffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &PixelBuffer{Width: w, Height: h, Pix: make([]uint8, 4*w*h)}
}

// NewFilled allocates a w×h buffer filled with c.
func NewFilled(w, h int, c color.NRGBA) *PixelBuffer {
	b := NewPixelBuffer(w, h)
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i+0] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
	return b
}

// FromImage converts any image into a PixelBuffer anchored at (0,0).
func FromImage(img image.Image) *PixelBuffer {
	n := imaging.Clone(img)
	return &PixelBuffer{Width: n.Rect.Dx(), Height: n.Rect.Dy(), Pix: n.Pix}
}

// ToImage returns an *image.NRGBA view of b. The view shares b's pixels.
func (b *PixelBuffer) ToImage() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: 4 * b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Clone returns a deep copy of b.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Bounds returns the buffer rectangle.
func (b *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// At returns the pixel at (x, y). Out-of-range coordinates yield transparent black.
func (b *PixelBuffer) At(x, y int) color.NRGBA {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.NRGBA{}
	}
	i := b.offset(x, y)
	return color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set writes c at (x, y). Out-of-range coordinates are ignored.
func (b *PixelBuffer) Set(x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	i := b.offset(x, y)
	b.Pix[i+0] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
}

// Equal reports whether a and b have the same size and samples.
func (b *PixelBuffer) Equal(o *PixelBuffer) bool {
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

func (b *PixelBuffer) offset(x, y int) int {
	return 4 * (y*b.Width + x)
}
