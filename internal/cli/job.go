package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/menta2k/idphoto"
	"github.com/menta2k/idphoto/internal/config"
	"github.com/menta2k/idphoto/internal/manifest"
	"github.com/menta2k/idphoto/internal/utils"
	"github.com/menta2k/idphoto/pkg/pdfsheet"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/project"
	"github.com/menta2k/idphoto/pkg/render"
	"github.com/menta2k/idphoto/pkg/tone"
)

// job is a loaded print job: the configuration, the manifest, the project
// built from it and a studio set up with the job geometry.
type job struct {
	cfg      *config.Config
	manifest *manifest.Manifest
	studio   *idphoto.Studio
	project  *project.Project
	ids      map[string]string
	frame    *tone.PixelBuffer
}

func (o *rootOptions) loadJob(ctx context.Context, path string) (*job, error) {
	logger := loggerFromContext(ctx)

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}

	r := render.New()
	if cfg.Render.StrokeMM > 0 {
		r.StrokeMM = cfg.Render.StrokeMM
	}
	studio := idphoto.New(
		idphoto.WithGeometry(m.Geometry(cfg.Geometry())),
		idphoto.WithRenderer(r),
		idphoto.WithLogger(logger),
	)

	prog := newProgress(logger)
	p, ids, err := m.Build(ctx, studio.Processor())
	if err != nil {
		return nil, err
	}
	frame, err := m.LoadFrame(ctx, studio.Processor())
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	prog.done(fmt.Sprintf("Loaded %d images", p.Len()))

	return &job{cfg: cfg, manifest: m, studio: studio, project: p, ids: ids, frame: frame}, nil
}

// writeSheet renders the job to output, a PDF or one image file per page,
// and returns the number of pages.
func (j *job) writeSheet(ctx context.Context, output string, pxPerMM float64) (int, error) {
	pc, err := j.manifest.PrintConfig()
	if err != nil {
		return 0, err
	}
	mode := j.manifest.LayoutMode()

	if utils.GetFileExtension(output) == "pdf" {
		opts := pdfsheet.DefaultOptions()
		opts.PxPerMM = pxPerMM
		f, err := os.Create(output)
		if err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", output, err)
		}
		n, err := j.studio.ExportPDFWithOptions(ctx, f, j.project, pc, mode, j.frame, opts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(output)
			return 0, err
		}
		return n, nil
	}

	rasters, pages, err := j.studio.RenderSheet(ctx, j.project, pc, mode, j.frame, pxPerMM)
	if err != nil {
		return 0, err
	}
	format := processing.FormatFromPath(output)
	for i, buf := range rasters {
		path := utils.PageFilename(output, pages[i].Index, len(pages))
		if err := j.studio.Save(buf, path, format, j.cfg.Output.Quality); err != nil {
			return 0, err
		}
		loggerFromContext(ctx).Debug("wrote page", "path", path)
	}
	return len(pages), nil
}
