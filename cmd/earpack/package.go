// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/earpack/earpack/internal/config"
	"github.com/earpack/earpack/internal/logging"
	"github.com/earpack/earpack/internal/pipeline"
)

// packageFlags override packager settings of the loaded configuration.
// Only flags set on the command line take effect.
type packageFlags struct {
	mode               string
	skip               bool
	descriptors        bool
	fwkExclusionFilter string
	outputTimestamp    string
}

// overrideKeys maps flag names onto configuration paths.
var overrideKeys = map[string]string{
	"mode":                 "packager.mode",
	"skip":                 "packager.skip",
	"descriptors":          "packager.descriptors",
	"fwk-exclusion-filter": "packager.fwkExclusionFilter",
	"output-timestamp":     "packager.outputTimestamp",
}

func newPackageCommand(root *rootFlags) *cobra.Command {
	flags := &packageFlags{}
	cmd := &cobra.Command{
		Use:   "package [module-dir]",
		Short: "Assemble the module archives",
		Long: `Assemble the EJB archive of a module and, in EAR mode, the EAR wrapping it.

Archives are written to the module's build directory as
<finalName>_ejb.jar and <finalName>.ear.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			opts := root.loadOptions(dir)
			opts.Overrides = flags.overrides(cmd)
			return runPackage(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", string(config.ModeEAR), "packaging mode (ear or jar)")
	cmd.Flags().BoolVar(&flags.skip, "skip", false, "skip packaging")
	cmd.Flags().BoolVar(&flags.descriptors, "descriptors", true, "generate server-side descriptors")
	cmd.Flags().StringVar(&flags.fwkExclusionFilter, "fwk-exclusion-filter", config.DefaultFwkExclusionFilter, "entries of the server framework left out of the EJB archive")
	cmd.Flags().StringVar(&flags.outputTimestamp, "output-timestamp", "", "entry timestamp for reproducible archives (epoch seconds or RFC 3339)")
	return cmd
}

// overrides returns the configuration overrides for the flags the user set.
func (f *packageFlags) overrides(cmd *cobra.Command) map[string]any {
	values := map[string]any{
		"mode":                 f.mode,
		"skip":                 f.skip,
		"descriptors":          f.descriptors,
		"fwk-exclusion-filter": f.fwkExclusionFilter,
		"output-timestamp":     f.outputTimestamp,
	}
	out := make(map[string]any)
	for name, key := range overrideKeys {
		if cmd.Flags().Changed(name) {
			out[key] = values[name]
		}
	}
	return out
}

func runPackage(cmd *cobra.Command, root *rootFlags, opts config.LoadOptions) error {
	ctx := cmd.Context()
	p, err := config.Load(ctx, opts)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Configuration error: ")+formatErrorForDisplay(err, root.verbose))
		return newExitError(err)
	}

	logger := logging.New(cmd.ErrOrStderr(), root.verbose)
	res, err := pipeline.New(p, pipeline.WithLogger(logger)).Run(ctx)
	if err != nil {
		return newExitError(err)
	}
	renderResult(cmd.OutOrStdout(), res)
	return nil
}

func renderResult(w io.Writer, res *pipeline.Result) {
	if res.Skipped != "" {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("Skipped:"), res.Skipped)
		return
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(a.Classifier), a.Path)
	}
	if res.Record != "" {
		fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("resolved artifacts recorded in"), res.Record)
	}
}
