package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString(info))
		},
	}
}

func versionString(info BuildInfo) string {
	s := fmt.Sprintf("%s %s", info.Name, info.Version)
	if info.Commit != "none" && info.Commit != "" {
		s += fmt.Sprintf(" (%s)", info.Commit)
	}
	return s + "\n"
}
