package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/internal/utils"
	"github.com/menta2k/idphoto/pkg/errors"
	"github.com/menta2k/idphoto/pkg/sizes"
)

type singleOptions struct {
	size   string
	image  string
	output string
	format string
}

func newSingleCmd(root *rootOptions) *cobra.Command {
	opts := &singleOptions{}

	cmd := &cobra.Command{
		Use:   "single <job.yaml>",
		Short: "Export photos of a job at one print size",
		Long: `Export each photo of a print job as a standalone file at one catalog
size, at 300 px per centimetre unless the config says otherwise. Use --image
to export a single photo by name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			size, err := sizes.Parse(opts.size)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "--size")
			}

			j, err := root.loadJob(ctx, args[0])
			if err != nil {
				return err
			}

			names := make([]string, 0, len(j.manifest.Images))
			if opts.image != "" {
				if _, ok := j.ids[opts.image]; !ok {
					return errors.New(errors.ErrCodeNotFound, "image %q not in job", opts.image)
				}
				names = append(names, opts.image)
			} else {
				for _, im := range j.manifest.Images {
					names = append(names, im.Name)
				}
			}

			outDir := opts.output
			if outDir == "" {
				outDir = j.cfg.Output.OutputDir
			}
			if outDir == "" {
				outDir = filepath.Dir(args[0])
			}
			if err := utils.EnsureDir(outDir); err != nil {
				return err
			}
			format := opts.format
			if format == "" {
				format = j.cfg.Output.DefaultFormat
			}

			prog := newProgress(logger)
			for _, name := range names {
				buf, err := j.studio.ExportSingle(j.project, j.ids[name], size, j.frame, j.cfg.Render.SinglePxPerCM)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				path := utils.GenerateOutputFilename(name, outDir, j.cfg.Output.Prefix, "_"+string(size), format)
				if err := j.studio.Save(buf, path, format, j.cfg.Output.Quality); err != nil {
					return err
				}
				logger.Info("exported", "image", name, "size", size, "px", fmt.Sprintf("%dx%d", buf.Width, buf.Height), "path", path)
			}
			prog.done(fmt.Sprintf("Exported %d photos", len(names)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.size, "size", "s", "3x4", "catalog size, e.g. 3x4 or 10x15")
	cmd.Flags().StringVar(&opts.image, "image", "", "export only the image with this name")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default from config or the job directory)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpg, png or webp (default from config)")

	return cmd
}
