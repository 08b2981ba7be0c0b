package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/internal/utils"
	"github.com/menta2k/idphoto/pkg/processing"
	"github.com/menta2k/idphoto/pkg/tone"
)

type gradeOptions struct {
	output  string
	quality int
	adj     tone.Adjustment
	regions []string
	crop    string
	format  string
}

func newGradeCmd() *cobra.Command {
	opts := &gradeOptions{adj: tone.DefaultAdjustment()}

	cmd := &cobra.Command{
		Use:   "grade <input...>",
		Short: "Apply tone adjustments to photos",
		Long: `Grade photos with global adjustments and optional feathered regions.

Inputs may be files, URLs or directories, which are searched recursively.
With one input, --output names the graded file; with several it names the
output directory and each photo is written as <name>_graded.<format>.

A region is x,y[,radius[,brightness,contrast,saturation,shadows,highlights]]
with x, y and radius normalized to the image. Regions apply in order.

  idphoto grade face.jpg -o out.png --brightness 110 --region 0.5,0.4,0.2,120`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			prog := newProgress(logger)

			inputs, err := utils.ExpandInputs(args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no images found in %v", args)
			}

			var box processing.Box
			if opts.crop != "" {
				if box, err = parseBox(opts.crop); err != nil {
					return err
				}
			}
			regions := make([]tone.RegionalAdjustment, 0, len(opts.regions))
			for _, s := range opts.regions {
				r, err := parseRegion(s)
				if err != nil {
					return err
				}
				regions = append(regions, r)
			}

			proc := processing.NewProcessor()
			for _, in := range inputs {
				output := opts.output
				switch {
				case len(inputs) > 1:
					dir := output
					if dir == "" {
						dir = filepath.Dir(in)
					}
					if err := utils.EnsureDir(dir); err != nil {
						return err
					}
					output = utils.GenerateOutputFilename(in, dir, "", "_graded", opts.format)
				case output == "":
					output = strings.TrimSuffix(in, filepath.Ext(in)) + "_graded.png"
				}

				img, err := proc.LoadImageSmart(ctx, in)
				if err != nil {
					return err
				}
				if !box.IsZero() {
					if img, err = proc.CropToBox(img, box); err != nil {
						return fmt.Errorf("%s: %w", in, err)
					}
				}

				out := tone.GradeWithRegions(tone.FromImage(img), opts.adj, regions)
				if err := proc.SaveImage(out.ToImage(), output, processing.FormatFromPath(output), opts.quality, false); err != nil {
					return err
				}
				logger.Debug("graded", "input", in, "output", output)
			}
			prog.done(fmt.Sprintf("Graded %d photos", len(inputs)))
			return nil
		},
	}

	addAdjustmentFlags(cmd, &opts.adj)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, or directory for several inputs")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "png", "output format for several inputs: jpg, png or webp")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", 95, "JPEG/WebP quality (1-100)")
	cmd.Flags().StringArrayVarP(&opts.regions, "region", "r", nil, "regional adjustment x,y[,radius[,b,c,s,sh,hi]] (repeatable)")
	cmd.Flags().StringVar(&opts.crop, "crop", "", "normalized crop box x,y,w,h")

	return cmd
}

func addAdjustmentFlags(cmd *cobra.Command, adj *tone.Adjustment) {
	cmd.Flags().Float64Var(&adj.Brightness, "brightness", adj.Brightness, "brightness percent (100 = unchanged)")
	cmd.Flags().Float64Var(&adj.Contrast, "contrast", adj.Contrast, "contrast percent (100 = unchanged)")
	cmd.Flags().Float64Var(&adj.Saturation, "saturation", adj.Saturation, "saturation percent (100 = unchanged)")
	cmd.Flags().Float64Var(&adj.Shadows, "shadows", adj.Shadows, "shadow lift, -100..100")
	cmd.Flags().Float64Var(&adj.Highlights, "highlights", adj.Highlights, "highlight recovery, -100..100")
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in %q", f, s)
		}
		out[i] = v
	}
	return out, nil
}

func parseRegion(s string) (tone.RegionalAdjustment, error) {
	v, err := parseFloats(s)
	if err != nil {
		return tone.RegionalAdjustment{}, err
	}
	if len(v) < 2 || len(v) > 8 {
		return tone.RegionalAdjustment{}, fmt.Errorf("region %q: want x,y[,radius[,b,c,s,sh,hi]]", s)
	}
	r := tone.NewRegion(v[0], v[1])
	fields := []*float64{&r.Radius, &r.Brightness, &r.Contrast, &r.Saturation, &r.Shadows, &r.Highlights}
	for i, x := range v[2:] {
		*fields[i] = x
	}
	return r, nil
}

func parseBox(s string) (processing.Box, error) {
	v, err := parseFloats(s)
	if err != nil {
		return processing.Box{}, err
	}
	if len(v) != 4 {
		return processing.Box{}, fmt.Errorf("crop %q: want x,y,w,h", s)
	}
	return processing.Box{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
