// Package idphoto prepares identification photos for print.
//
// It ties together the engines in pkg/: photos are loaded into a
// project.Project, graded with global and regional tone adjustments, laid
// out on A4 sheets with the shelf packer, and rendered to rasters, PDF
// documents or single-photo files.
//
// Basic usage:
//
//	studio := idphoto.New()
//	p := project.New()
//
//	buf, err := studio.LoadImage(ctx, "alice.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//	id := p.AddImage("alice", buf)
//	_ = p.SetAdjustment(id, tone.Adjustment{Brightness: 110, Contrast: 100, Saturation: 100})
//
//	cfg := layout.PrintConfig{"3x4": 6, "4x6": 2}
//	f, _ := os.Create("sheet.pdf")
//	defer f.Close()
//	if _, err := studio.ExportPDF(ctx, f, p, cfg, layout.ModeMixed, nil); err != nil {
//		log.Fatal(err)
//	}
//
// The package consists of these components:
//
//  1. Sizes and layout (pkg/sizes, pkg/layout): the photo catalog and the
//     deterministic sheet packer
//  2. Tone (pkg/tone): pure, resolution independent grading
//  3. Render (pkg/render, pkg/pdfsheet): page rasters, single exports and PDF
//  4. Replacement (pkg/replacement, pkg/gemini, pkg/llamacpp): background
//     and outfit replacement through an image model
package idphoto

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/pdfsheet"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/project"
	"github.com/menta2k/idphoto/pkg/render"
	"github.com/menta2k/idphoto/pkg/sizes"
	"github.com/menta2k/idphoto/pkg/tone"
)

// Version of the idphoto library
const Version = "1.0.0"

// Studio provides a high-level interface for preparing print sheets
type Studio struct {
	proc        *processing.Processor
	renderer    *render.Renderer
	geom        layout.Geometry
	logger      *log.Logger
	parallelism int
}

// Option configures a Studio.
type Option func(*Studio)

// WithGeometry sets the page geometry.
func WithGeometry(g layout.Geometry) Option {
	return func(s *Studio) { s.geom = g }
}

// WithRenderer replaces the default renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Studio) { s.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Studio) { s.logger = l }
}

// WithParallelism bounds how many images are graded at once.
func WithParallelism(n int) Option {
	return func(s *Studio) { s.parallelism = n }
}

// New creates a Studio with portrait A4 geometry.
func New(opts ...Option) *Studio {
	s := &Studio{
		proc:        processing.NewProcessor(),
		renderer:    render.New(),
		geom:        layout.PortraitA4(),
		logger:      log.Default(),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelism < 1 {
		s.parallelism = 1
	}
	return s
}

// Geometry returns the page geometry in use.
func (s *Studio) Geometry() layout.Geometry {
	return s.geom
}

// Processor returns the decoder used by the studio.
func (s *Studio) Processor() *processing.Processor {
	return s.proc
}

// LoadImage decodes a file path or URL.
func (s *Studio) LoadImage(ctx context.Context, source string) (*tone.PixelBuffer, error) {
	return s.proc.LoadBuffer(ctx, source)
}

// Plan validates the print configuration and lays out the sheet.
// A zero total or an empty project is a VALIDATION error. Sizes larger
// than the printable area are logged and laid out anyway: the packer
// starts them on a fresh page at the margin and lets them overhang.
func (s *Studio) Plan(p *project.Project, cfg layout.PrintConfig, mode layout.Mode) ([]layout.Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	demand := p.Demand(cfg, mode)
	if len(demand) == 0 {
		return nil, errors.Validation("no images to print")
	}
	if err := layout.CheckFits(demand, s.geom); err != nil {
		s.logger.Warn("photo exceeds the printable area", "error", err)
	}

	pages := layout.Layout(demand, s.geom)
	s.logger.Debug("laid out sheet", "photos", demand.Total(), "pages", len(pages))
	return pages, nil
}

// GradeAll grades every image of p in parallel and returns a lookup for
// the renderer. Regions of one image are still applied in order.
func (s *Studio) GradeAll(ctx context.Context, p *project.Project) (render.RasterSource, error) {
	images := p.Images()
	graded := make(map[string]*tone.PixelBuffer, len(images))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, im := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf := im.Graded()
			if buf == nil {
				return nil
			}
			mu.Lock()
			graded[im.ID] = buf
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return func(id string) (*tone.PixelBuffer, bool) {
		buf, ok := graded[id]
		return buf, ok
	}, nil
}

// RenderSheet plans and renders every page at pxPerMM.
func (s *Studio) RenderSheet(ctx context.Context, p *project.Project, cfg layout.PrintConfig, mode layout.Mode, frame *tone.PixelBuffer, pxPerMM float64) ([]*tone.PixelBuffer, []layout.Page, error) {
	pages, err := s.Plan(p, cfg, mode)
	if err != nil {
		return nil, nil, err
	}
	src, err := s.GradeAll(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	rasters, err := s.renderer.RenderPages(ctx, pages, src, frame, pxPerMM)
	if err != nil {
		return nil, nil, err
	}
	return rasters, pages, nil
}

// ExportPDF writes the sheet as a PDF at 300 DPI and returns the page count.
func (s *Studio) ExportPDF(ctx context.Context, w io.Writer, p *project.Project, cfg layout.PrintConfig, mode layout.Mode, frame *tone.PixelBuffer) (int, error) {
	return s.ExportPDFWithOptions(ctx, w, p, cfg, mode, frame, pdfsheet.DefaultOptions())
}

// ExportPDFWithOptions is ExportPDF with explicit PDF options.
func (s *Studio) ExportPDFWithOptions(ctx context.Context, w io.Writer, p *project.Project, cfg layout.PrintConfig, mode layout.Mode, frame *tone.PixelBuffer, opts pdfsheet.Options) (int, error) {
	pages, err := s.Plan(p, cfg, mode)
	if err != nil {
		return 0, err
	}
	src, err := s.GradeAll(ctx, p)
	if err != nil {
		return 0, err
	}
	if opts.Renderer == nil {
		opts.Renderer = s.renderer
	}
	n, err := pdfsheet.Write(ctx, w, pages, src, frame, opts)
	if err != nil {
		return n, err
	}
	s.logger.Info("exported pdf", "pages", n)
	return n, nil
}

// ExportSingle renders one image at one catalog size at pxPerCM. A
// non-positive pxPerCM means render.PxPerCMExport.
func (s *Studio) ExportSingle(p *project.Project, id string, size sizes.ID, frame *tone.PixelBuffer, pxPerCM float64) (*tone.PixelBuffer, error) {
	spec, ok := sizes.Lookup(size)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown photo size %q", size)
	}
	im, ok := p.Image(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "image %q not found", id)
	}
	graded := im.Graded()
	if graded == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "image %q has no raster", id)
	}
	if pxPerCM <= 0 {
		pxPerCM = render.PxPerCMExport
	}
	return s.renderer.ExportSingle(graded, spec, frame, pxPerCM)
}

// Save encodes buf to path in format ("jpg", "png" or "webp").
func (s *Studio) Save(buf *tone.PixelBuffer, path, format string, quality int) error {
	if err := s.proc.SaveImage(buf.ToImage(), path, format, quality, false); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save %s", path)
	}
	return nil
}
