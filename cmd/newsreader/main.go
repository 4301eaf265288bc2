// Command newsreader is the news client CLI.
//
// Usage:
//
//	newsreader browse            Interactive feed browser (REPL)
//	newsreader search            One-shot search by keyword and/or date
//	newsreader bookmarks         List bookmarked articles
//	newsreader bookmark <id>     Toggle a bookmark
//	newsreader history           List locally cached articles
//	newsreader clear-history     Drop cached articles, keeping bookmarks
//	newsreader categories        Show or set the category selection
//	newsreader sync              Prime the local cache from the remote feed
//	newsreader stats             Local storage statistics
//	newsreader events            JSONL event log viewer
//	newsreader version           Print version information
//
// Configuration lives at $XDG_CONFIG_HOME/newsreader/config.yaml and can
// be overridden with NEWSREADER_* environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "newsreader",
	Short:         "Offline-tolerant news reading client",
	Long:          "newsreader browses a remote paged news feed with a local cache that keeps the app usable when the network is not.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsreader %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(bookmarksCmd)
	rootCmd.AddCommand(bookmarkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearHistoryCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "newsreader: %v\n", err)
		os.Exit(1)
	}
}
