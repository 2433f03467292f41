package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/swarmux/swarmux/internal/cmd.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the swarmux version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("swarmux %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
