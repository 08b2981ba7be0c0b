// Package cli implements the idphoto command-line interface.
//
// # Commands
//
//   - sizes: list the photo catalog and how many fit one page
//   - layout: print sheet placements for a print configuration
//   - grade: apply tone adjustments to one photo
//   - sheet: render a YAML print job to PDF or page images
//   - single: export each photo of a job at one size
//   - replace: replace backgrounds or outfits through an image model
//
// All commands support --verbose (-v) for debug logging and --config for a
// JSON or TOML configuration file. A .env file in the working directory is
// loaded before any command runs.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/menta2k/idphoto/internal/config"
	"github.com/menta2k/idphoto/internal/utils"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Version returns the version set with SetVersion.
func Version() string {
	return version
}

type rootOptions struct {
	verbose    bool
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "idphoto",
		Short:        "Prepare ID photos for print",
		Long:         `idphoto grades ID photos, replaces backgrounds through an image model and packs the photos onto A4 sheets ready for printing.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := charmlog.InfoLevel
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("idphoto %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.json or .toml, default "+config.GetConfigPath()+")")

	root.AddCommand(newSizesCmd())
	root.AddCommand(newLayoutCmd(opts))
	root.AddCommand(newGradeCmd())
	root.AddCommand(newSheetCmd(opts))
	root.AddCommand(newSingleCmd(opts))
	root.AddCommand(newReplaceCmd(opts))

	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// loadConfig reads the configuration from path, then from the default
// location, falling back to defaults when neither exists.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default(), nil
		}
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
