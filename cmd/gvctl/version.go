package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is gvctl's version string, overridable via -ldflags at build time.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			fmt.Printf(`{"version":%q}`+"\n", Version)
			return
		}
		fmt.Println("gvctl", Version)
	},
}
