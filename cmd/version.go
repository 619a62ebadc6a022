package cmd

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"
)

// Commit and Date are set at build time via -ldflags, alongside Version.
var (
	Commit = "none"
	Date   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codewright %s (commit: %s, built: %s, %s/%s)\n",
			Version, Commit, Date, goruntime.GOOS, goruntime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
