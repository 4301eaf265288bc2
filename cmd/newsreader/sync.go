package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/yx-shi/NewsClient-sub001/internal/coord"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

var flagSyncWatch bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Prime the local cache from the remote feed",
	Long: `Walk the first pages of every saved category and store the articles
locally, so browsing keeps working offline. Categories given as
arguments override the saved selection for this run.

With --watch, keep syncing periodically until interrupted.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncWatch, "watch", false, "keep syncing on an interval until interrupted")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var cats []news.Category
	if len(args) > 0 {
		cats = normalizeCategories(args)
	} else {
		cats, err = a.state.SelectedCategories()
		if err != nil {
			return fmt.Errorf("reading categories: %w", err)
		}
	}
	if len(cats) == 0 {
		return fmt.Errorf("no categories to sync: save some with 'newsreader categories set' or pass them as arguments")
	}

	c := coord.NewCoordinator(a.repo, a.evlog, cats, coord.SyncConfig{
		PageSize: a.cfg.Sync.PageSize,
		Pages:    a.cfg.Sync.Pages,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if flagSyncWatch {
		fmt.Printf("Syncing %d categories periodically, Ctrl-C to stop.\n", len(cats))
		c.Start(ctx)
		c.Wait()
		return nil
	}

	summary := c.SyncOnce(ctx)
	for _, r := range summary.Results {
		switch {
		case errors.Is(r.Err, coord.ErrRemoteUnavailable):
			fmt.Printf("  %-10s remote unreachable, cache untouched\n", r.Category)
		case r.Err != nil:
			fmt.Printf("  %-10s failed after %d articles: %v\n", r.Category, r.Fetched, r.Err)
		default:
			fmt.Printf("  %-10s %d articles over %d page(s)\n", r.Category, r.Fetched, r.Pages)
		}
	}
	fmt.Printf("Synced %d articles, %d categories failed.\n", summary.Fetched, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d categories failed", summary.Failed, len(cats))
	}
	return nil
}
