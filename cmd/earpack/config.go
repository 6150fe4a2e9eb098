// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/earpack/earpack/internal/config"
)

// newConfigCommand creates the `earpack config` command tree.
func newConfigCommand(root *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect earpack configuration",
		Long: `Inspect earpack configuration.

Configuration is read from ` + config.FileName + ` in the module directory,
then ` + config.EnvPrefix + `_* environment variables, then command-line flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show [module-dir]",
		Short: "Show the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			p, err := config.Load(cmd.Context(), root.loadOptions(dir))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Configuration error: ")+formatErrorForDisplay(err, root.verbose))
				return newExitError(err)
			}
			showConfig(cmd.OutOrStdout(), p)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, p *config.Project) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	line := func(key, value string) {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(value))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if p.File != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), p.File)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	line("module", fmt.Sprintf("%s:%s:%s", p.Module.GroupID, p.Module.ArtifactID, p.Module.Version))
	line("finalName", p.Module.FinalName)
	line("buildDir", p.Module.BuildDir)
	line("mode", p.Packager.Mode.String())
	line("descriptors", fmt.Sprint(p.Packager.Descriptors))
	line("fwkExclusionFilter", p.Packager.FwkExclusionFilter)
	line("outputTimestamp", cmp.Or(p.Packager.OutputTimestamp, "(not reproducible)"))
	line("serverFramework", p.Packager.ServerFramework)
	line("libs", strings.Join(p.Packager.Libs, ", "))
	line("localRepository", p.LocalRepository)
	if reason := p.SkipReason(); reason != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("skip"), WarningStyle.Render(reason))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("repositories"))
	if len(p.Repositories) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, repo := range p.Repositories {
		fmt.Fprintf(w, "  - %s %s\n", repo.ID, SubtitleStyle.Render(repo.URL))
	}

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("dependencies"))
	if len(p.Dependencies) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none declared)"))
	}
	for _, c := range p.Dependencies {
		fmt.Fprintf(w, "  - %s\n", c.String())
	}

	fmt.Fprintf(w, "%s:\n", keyStyle.Render("properties"))
	for _, key := range slices.Sorted(maps.Keys(p.Properties)) {
		fmt.Fprintf(w, "  %s = %s\n", key, p.Properties[key])
	}
}
