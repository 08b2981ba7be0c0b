package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/pkg/layout"
	"github.com/menta2k/idphoto/pkg/sizes"
)

func newSizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "List photo sizes and how many fit one A4 page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portrait, landscape := layout.PortraitA4(), layout.LandscapeA4()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SIZE\tMM\tPORTRAIT\tLANDSCAPE")
			for _, s := range sizes.All() {
				pc, pr := portrait.Capacity(s)
				lc, lr := landscape.Capacity(s)
				fmt.Fprintf(w, "%s\t%gx%g\t%s\t%s\n", s.ID, s.WidthMM, s.HeightMM, grid(pc, pr), grid(lc, lr))
			}
			return w.Flush()
		},
	}
}

func grid(cols, rows int) string {
	if cols*rows == 0 {
		return "-"
	}
	return fmt.Sprintf("%d (%dx%d)", cols*rows, cols, rows)
}
