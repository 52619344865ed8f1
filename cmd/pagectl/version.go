package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mm/buddy"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printInfo("pagectl %s\n", version)
		printInfo("  commit: %s\n", commit)
		printInfo("  built: %s\n", date)
		printInfo("  page size: %d, max order: %d, max pools: %d\n",
			buddy.PageSize, buddy.MaxOrder, buddy.MaxPools)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
