package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/internal/utils"
)

type sheetOptions struct {
	output string
	dpi    float64
}

func newSheetCmd(root *rootOptions) *cobra.Command {
	opts := &sheetOptions{}

	cmd := &cobra.Command{
		Use:   "sheet <job.yaml>",
		Short: "Render a print job to PDF or page images",
		Long: `Render the sheet described by a YAML print job.

The output format follows the extension: .pdf writes one document with a
page per sheet; .png, .jpg and .webp write one image per page, suffixed
_page1, _page2 and so on when there is more than one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			j, err := root.loadJob(ctx, args[0])
			if err != nil {
				return err
			}

			pxPerMM := j.cfg.SheetPxPerMM()
			if opts.dpi > 0 {
				pxPerMM = opts.dpi / 25.4
			}
			output := opts.output
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
			}
			if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
				return err
			}

			prog := newProgress(logger)
			n, err := j.writeSheet(ctx, output, pxPerMM)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Rendered %d pages to %s", n, output))
			if info, err := os.Stat(output); err == nil {
				logger.Debug("wrote sheet", "path", output, "size", utils.FormatFileSize(info.Size()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.pdf, .png, .jpg or .webp)")
	cmd.Flags().Float64Var(&opts.dpi, "dpi", 0, "raster density in dots per inch (default from config)")

	return cmd
}
