// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for earpack.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/earpack/earpack/internal/config"
	"github.com/earpack/earpack/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	verbose bool
	cfgFile string
}

// loadOptions returns config loading inputs for the module in dir.
func (f *rootFlags) loadOptions(dir string) config.LoadOptions {
	return config.LoadOptions{Dir: dir, ConfigFile: f.cfgFile}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "earpack",
		Short: "Assemble server test modules into EJB and EAR archives",
		Long: TitleStyle.Render("earpack") + SubtitleStyle.Render(" - server test module packager") + `

earpack turns a compiled test module into an EJB archive holding the
server test framework, the module's classes and generated server-side
descriptors, and optionally wraps it into an EAR with shared libraries
and member modules.

Modules are described by an 'earpack.cue' file in the module directory.

` + SubtitleStyle.Render("Examples:") + `
  earpack package                 Package the module in the current directory
  earpack package --mode jar      Produce the EJB archive only
  earpack runners fwk.jar         List the test runners a framework provides
  earpack config show             Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is <module-dir>/"+config.FileName+")")

	rootCmd.AddCommand(newPackageCommand(flags))
	rootCmd.AddCommand(newRunnersCommand())
	rootCmd.AddCommand(newConfigCommand(flags))
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCommand(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
