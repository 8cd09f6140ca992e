package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Cirrus\n")
		_, _ = fmt.Fprintf(out, "  Version:    %s\n", Version)
		_, _ = fmt.Fprintf(out, "  Commit:     %s\n", Commit)
		_, _ = fmt.Fprintf(out, "  Build Date: %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
