package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/sizes"
)

type layoutOptions struct {
	print       map[string]int
	mode        string
	orientation string
	margin      float64
	gap         float64
	asJSON      bool
}

func newLayoutCmd(root *rootOptions) *cobra.Command {
	opts := &layoutOptions{}

	cmd := &cobra.Command{
		Use:   "layout [image...]",
		Short: "Show where every photo lands on the sheet",
		Long: `Lay out copies of the named images and print the placements.

Images are plain labels here; no files are read. Example:

  idphoto layout alice bob --print 3x4=4,4x6=2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"photo"}
			}

			pc, err := parsePrintConfig(opts.print)
			if err != nil {
				return err
			}
			if err := pc.Validate(); err != nil {
				return err
			}
			mode, err := layout.ParseMode(opts.mode)
			if err != nil {
				return err
			}

			geom := cfg.Geometry()
			if cmd.Flags().Changed("orientation") {
				o, err := layout.ParseOrientation(opts.orientation)
				if err != nil {
					return err
				}
				geom = layout.GeometryFor(o).WithSpacing(geom.MarginMM, geom.GapMM)
			}
			if cmd.Flags().Changed("margin") {
				geom.MarginMM = opts.margin
			}
			if cmd.Flags().Changed("gap") {
				geom.GapMM = opts.gap
			}

			demand := layout.BuildDemand(args, pc, mode)
			if err := layout.CheckFits(demand, geom); err != nil {
				loggerFromContext(cmd.Context()).Warn("some photos will not fit", "error", err)
			}
			pages := layout.Layout(demand, geom)

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(pages)
			}
			return printPages(cmd, pages)
		},
	}

	cmd.Flags().StringToIntVarP(&opts.print, "print", "p", map[string]int{"3x4": 4}, "copies per image by size, e.g. 3x4=4,4x6=2")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "mixed", "layout mode: mixed or fill_page")
	cmd.Flags().StringVarP(&opts.orientation, "orientation", "o", "portrait", "page orientation: portrait or landscape")
	cmd.Flags().Float64Var(&opts.margin, "margin", sizes.DefaultMarginMM, "page margin in mm")
	cmd.Flags().Float64Var(&opts.gap, "gap", sizes.DefaultGapMM, "gap between photos in mm")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print pages as JSON")

	return cmd
}

func printPages(cmd *cobra.Command, pages []layout.Page) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, p := range pages {
		fmt.Fprintf(w, "page %d (%gx%gmm): %d photos\n", p.Index, p.WidthMM, p.HeightMM, len(p.Items))
		for _, it := range p.Items {
			fmt.Fprintf(w, "  %s\t%s\tx=%.1f\ty=%.1f\n", it.SizeLabel, it.ImageRef, it.XMM, it.YMM)
		}
	}
	return w.Flush()
}

func parsePrintConfig(m map[string]int) (layout.PrintConfig, error) {
	pc := make(layout.PrintConfig, len(m))
	for key, q := range m {
		id, err := sizes.Parse(key)
		if err != nil {
			return nil, err
		}
		pc[id] = q
	}
	return pc, nil
}
