package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/tone"
)

// DefaultServiceMaxDim is the longest side of a raster sent to the
// replacement service.
const DefaultServiceMaxDim = 1024

// Box is a crop rectangle normalized to the image size.
type Box struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// IsZero reports whether b is unset.
func (b Box) IsZero() bool {
	return b.W == 0 && b.H == 0
}

// Processor decodes, encodes and resizes photos.
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadImageFromURL downloads and decodes an image from a URL.
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "idphoto/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.New(errors.ErrCodeDecode, "URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return p.Decode(data)
}

// LoadImage loads an image from a file path with WebP support.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, err := p.Decode(data)
	if err != nil {
		return nil, errors.Decode(err, "decode %s", filepath.Base(path))
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL.
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// LoadBuffer loads source and converts it to a PixelBuffer.
func (p *Processor) LoadBuffer(ctx context.Context, source string) (*tone.PixelBuffer, error) {
	img, err := p.LoadImageSmart(ctx, source)
	if err != nil {
		return nil, err
	}
	return tone.FromImage(img), nil
}

// Decode decodes raw JPEG, PNG or WebP bytes. Failures are DECODE errors.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeDecode, "empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}

	return nil, errors.Decode(err, "unknown or unsupported image format")
}

// PrepareForService shrinks img so neither side exceeds maxDim, keeping the
// aspect ratio. Smaller images are returned unchanged.
func (p *Processor) PrepareForService(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// CropToBox crops img to a normalized box. A zero box returns img.
func (p *Processor) CropToBox(img image.Image, box Box) (image.Image, error) {
	if box.IsZero() {
		return img, nil
	}
	bounds := img.Bounds()
	fw, fh := float64(bounds.Dx()), float64(bounds.Dy())

	x0 := bounds.Min.X + int(clamp(box.X, 0, 1)*fw+0.5)
	y0 := bounds.Min.Y + int(clamp(box.Y, 0, 1)*fh+0.5)
	x1 := bounds.Min.X + int(clamp(box.X+box.W, 0, 1)*fw+0.5)
	y1 := bounds.Min.Y + int(clamp(box.Y+box.H, 0, 1)*fh+0.5)

	rect := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if rect.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty crop rectangle")
	}
	return imaging.Crop(img, rect), nil
}

// Encode writes img in the given format ("jpg", "png" or "webp").
func (p *Processor) Encode(w io.Writer, img image.Image, format string, quality int, lossless bool) error {
	switch NormalizeFormat(format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: lossless, Quality: float32(quality)})
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
}

// EncodeBytes encodes img into memory.
func (p *Processor) EncodeBytes(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, format, quality, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveImage saves an image to a file with the specified format and quality.
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch NormalizeFormat(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return p.Encode(f, img, "webp", quality, lossless)
	case "png":
		return imaging.Save(img, path, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// NormalizeFormat maps format names and extensions to "jpg", "png" or "webp".
func NormalizeFormat(format string) string {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpg"
	}
}

// FormatFromPath returns the output format implied by a file extension.
func FormatFromPath(path string) string {
	return NormalizeFormat(filepath.Ext(path))
}

// MIMEType returns the MIME type of a normalized format.
func MIMEType(format string) string {
	switch NormalizeFormat(format) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
