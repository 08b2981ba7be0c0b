package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/internal/config"
	"github.com/menta2k/idphoto/internal/utils"
	"github.com/menta2k/idphoto/pkg/cache"
	"github.com/menta2k/idphoto/pkg/client"
	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/gemini"
	"github.com/menta2k/idphoto/pkg/llamacpp"
	"github.com/menta2k/idphoto/pkg/replacement"
)

type replaceOptions struct {
	color   string
	prompt  string
	images  []string
	output  string
	sheet   string
	backend string
	model   string
}

func newReplaceCmd(root *rootOptions) *cobra.Command {
	opts := &replaceOptions{}

	cmd := &cobra.Command{
		Use:   "replace <job.yaml>",
		Short: "Replace backgrounds and outfits through an image model",
		Long: `Send the photos of a print job to an image model, one at a time, to
replace the background with a flat color and optionally dress the person in
the outfit assigned in the job.

Backends:
  gemini    Google Gemini (GEMINI_API_KEY)
  llamacpp  an OpenAI-compatible server (LLAMACPP_API_KEY, optional)

Failed photos are reported and keep their previous state; the batch goes on.
With --sheet the resulting photos are also rendered to a print sheet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			j, err := root.loadJob(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.backend != "" {
				j.cfg.Replacement.Backend = opts.backend
			}
			if opts.model != "" {
				j.cfg.Replacement.Model = opts.model
			}

			color := opts.color
			if color == "" {
				color = j.manifest.Background
			}
			if color == "" {
				color = j.cfg.Replacement.DefaultColor
			}
			color = replacement.NormalizeColor(color)
			if !replacement.ValidateColor(color) {
				return errors.New(errors.ErrCodeInvalidInput, "invalid background color %q", color)
			}
			prompt := opts.prompt
			if prompt == "" {
				prompt = j.manifest.Prompt
			}

			ids := make([]string, 0, len(opts.images))
			for _, name := range opts.images {
				id, ok := j.ids[name]
				if !ok {
					return errors.New(errors.ErrCodeNotFound, "image %q not in job", name)
				}
				ids = append(ids, id)
			}

			replacer, closeFn, err := newReplacer(ctx, j.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			procOpts := []replacement.Option{
				replacement.WithDelay(j.cfg.Delay()),
				replacement.WithMaxDim(j.cfg.Replacement.MaxDimension),
				replacement.WithLogger(logger),
				replacement.WithModelTag(j.cfg.Replacement.Backend + "/" + j.cfg.Replacement.Model),
			}
			if dir := j.cfg.Replacement.CacheDir; dir != "" {
				fc, err := cache.NewFileCache(dir)
				if err != nil {
					return err
				}
				defer fc.Close()
				procOpts = append(procOpts, replacement.WithCache(fc, j.cfg.CacheTTL()))
			}
			proc := replacement.New(replacer, procOpts...)

			prog := newProgress(logger)
			res, err := j.project.Replace(ctx, proc, ids, color, prompt)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Replaced %d of %d backgrounds", res.Succeeded, res.Succeeded+res.Failed))

			outDir := opts.output
			if outDir == "" {
				outDir = j.cfg.Output.OutputDir
			}
			if err := utils.EnsureDir(outDir); err != nil {
				return err
			}
			format := j.cfg.Output.DefaultFormat
			for _, out := range res.Outcomes {
				im, _ := j.project.Image(out.ID)
				if out.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", im.Name, im.ErrorMessage)
					continue
				}
				path := utils.GenerateOutputFilename(im.Name, outDir, j.cfg.Output.Prefix, j.cfg.Output.Suffix, format)
				if err := j.studio.Save(im.Processed, path, format, j.cfg.Output.Quality); err != nil {
					return err
				}
				logger.Info("saved", "image", im.Name, "path", path, "cached", out.Cached)
			}

			if opts.sheet != "" {
				if stale := j.project.Stale(color); len(stale) > 0 {
					logger.Warn("some photos have a different background", "count", len(stale))
				}
				if err := utils.EnsureDir(filepath.Dir(opts.sheet)); err != nil {
					return err
				}
				n, err := j.writeSheet(ctx, opts.sheet, j.cfg.SheetPxPerMM())
				if err != nil {
					return err
				}
				logger.Info("rendered sheet", "path", opts.sheet, "pages", n)
			}

			if res.Failed > 0 {
				return errors.New(errors.ErrCodeService, "%d of %d replacements failed", res.Failed, len(res.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.color, "color", "", `background color, "#rrggbb" or "original" (default from job or config)`)
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "custom prompt sent instead of the built-in one")
	cmd.Flags().StringSliceVar(&opts.images, "image", nil, "only replace these images (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "directory for the replaced photos (default from config)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "also render the print sheet to this file")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "replacement backend: gemini or llamacpp (default from config)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (default from config)")

	return cmd
}

// newReplacer builds the configured backend and a function releasing it.
func newReplacer(ctx context.Context, cfg *config.Config) (client.Replacer, func() error, error) {
	rc := cfg.Replacement
	switch strings.ToLower(rc.Backend) {
	case "", "gemini":
		g, err := gemini.New(ctx, "", rc.Model)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(rc.ServerURL, rc.Model, os.Getenv("LLAMACPP_API_KEY"))
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported replacement backend: %s", rc.Backend)
	}
}
