package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Local storage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		total, err := a.cache.ArticleCount()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		bookmarked, err := a.cache.BookmarkedCount()
		if err != nil {
			return fmt.Errorf("reading cache stats: %w", err)
		}
		readIDs, err := a.state.ReadIDs()
		if err != nil {
			return fmt.Errorf("reading user state: %w", err)
		}
		cats, err := a.state.SelectedCategories()
		if err != nil {
			return fmt.Errorf("reading user state: %w", err)
		}

		fmt.Printf("Cached articles:    %d\n", total)
		fmt.Printf("Bookmarked:         %d\n", bookmarked)
		fmt.Printf("Marked read:        %d\n", len(readIDs))
		if len(cats) == 0 {
			fmt.Printf("Categories:         (none)\n")
		} else {
			fmt.Printf("Categories:         %s\n", strings.Join(cats, ", "))
		}

		fmt.Println()
		printFile("Article cache", a.cfg.CacheDBPath())
		printFile("User state", a.cfg.StateDBPath())
		printFile("Event log", a.cfg.EventLogPath())
		return nil
	},
}

func printFile(label, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("%-14s %s (absent)\n", label+":", path)
		return
	}
	fmt.Printf("%-14s %s (%s)\n", label+":", path, formatBytes(info.Size()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
