// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/earpack/earpack/internal/config"
	"github.com/earpack/earpack/internal/runners"
)

func newRunnersCommand() *cobra.Command {
	var exclusionFilter string
	cmd := &cobra.Command{
		Use:   "runners <framework-archive>",
		Short: "List the test runners a framework archive provides",
		Long: `List the test runners a server test framework archive provides, after
applying the exclusion filter. These are the session beans a generated
ejb-jar.xml declares.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := runners.Names(args[0], exclusionFilter)
			if err != nil {
				return newExitError(err)
			}
			out := cmd.OutOrStdout()
			if names == "" {
				fmt.Fprintln(out, SubtitleStyle.Render("(no runners)"))
				return nil
			}
			for name := range strings.FieldsSeq(names) {
				fmt.Fprintf(out, "%s  %s\n", CmdStyle.Render(name), SubtitleStyle.Render(runners.BeanClass(name)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exclusionFilter, "filter", config.DefaultFwkExclusionFilter, "bracketed-regex exclusion filter")
	return cmd
}
