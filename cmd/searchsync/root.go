package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenpress/searchsync/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "searchsync",
	Short: "Search index synchronization and observability engine",
	Long: `searchsync keeps the relational content store and the external
search engine consistent: it mirrors entity writes into the index, rebuilds
the index on demand, and serves the search API with health and metrics.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "searchsync %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
