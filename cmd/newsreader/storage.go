package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

var (
	flagHistoryLimit  int
	flagHistoryOffset int
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "List bookmarked articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		articles, err := a.repo.Bookmarked()
		if err != nil {
			return fmt.Errorf("reading bookmarks: %w", err)
		}
		if len(articles) == 0 {
			fmt.Println("No bookmarks yet.")
			return nil
		}
		for i, art := range articles {
			fmt.Printf("%3d %-10s %s  [%s]\n", i+1, art.Category, art.Title, art.ID)
		}
		return nil
	},
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark <article-id>",
	Short: "Toggle a bookmark",
	Long: `Toggle the bookmark on a cached article. Bookmarked articles survive
clear-history and stay readable offline. Toggling an ID that is not in
the local cache does nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		id := args[0]
		art, err := a.repo.ArticleByID(id)
		if err != nil {
			return fmt.Errorf("looking up article: %w", err)
		}
		if art == nil {
			fmt.Printf("No cached article with ID %s.\n", id)
			return nil
		}
		bookmarked, err := a.repo.ToggleBookmark(id)
		if err != nil {
			return fmt.Errorf("toggling bookmark: %w", err)
		}
		if bookmarked {
			fmt.Printf("Bookmarked %q.\n", art.Title)
		} else {
			fmt.Printf("Removed bookmark on %q.\n", art.Title)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List locally cached articles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		articles, err := a.repo.Recent(flagHistoryLimit, flagHistoryOffset)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		if len(articles) == 0 {
			fmt.Println("Nothing cached.")
			return nil
		}
		printArticles(articles)
		return nil
	},
}

var clearHistoryCmd = &cobra.Command{
	Use:   "clear-history",
	Short: "Drop cached articles, keeping bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		removed, err := a.repo.ClearHistory()
		if err != nil {
			return fmt.Errorf("clearing history: %w", err)
		}
		if removed == 0 {
			fmt.Println("Nothing to clear.")
		} else {
			fmt.Printf("Removed %d cached article(s); bookmarks kept.\n", removed)
		}
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories [set <category>...]",
	Short: "Show or replace the saved category selection",
	Long: `Without arguments, print the saved categories. With "set", replace
the selection; duplicates and empty names are dropped. The browser
auto-selects the first saved category on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(args) == 0 {
			cats, err := a.state.SelectedCategories()
			if err != nil {
				return fmt.Errorf("reading categories: %w", err)
			}
			if len(cats) == 0 {
				fmt.Println("No categories saved. Use 'newsreader categories set <category>...'.")
				return nil
			}
			for _, c := range cats {
				fmt.Println(c)
			}
			return nil
		}

		if args[0] != "set" {
			return fmt.Errorf("unknown argument %q, want 'set'", args[0])
		}
		cats := normalizeCategories(args[1:])
		if err := a.state.SetSelectedCategories(cats); err != nil {
			return fmt.Errorf("saving categories: %w", err)
		}
		if len(cats) == 0 {
			fmt.Println("Cleared category selection.")
		} else {
			fmt.Printf("Saved %d categories: %s\n", len(cats), strings.Join(cats, ", "))
		}
		return nil
	},
}

// normalizeCategories drops empties and duplicates, keeping first-seen
// order.
func normalizeCategories(raw []string) []news.Category {
	seen := make(map[string]struct{}, len(raw))
	var cats []news.Category
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cats = append(cats, c)
	}
	return cats
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "maximum articles to list")
	historyCmd.Flags().IntVar(&flagHistoryOffset, "offset", 0, "articles to skip")
}
