package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yx-shi/NewsClient-sub001/internal/controller"
	"github.com/yx-shi/NewsClient-sub001/internal/controller/controllers"
	"github.com/yx-shi/NewsClient-sub001/internal/coord"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

var flagBrowseSync bool

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive feed browser",
	Long: `Browse the news feed interactively. The list keeps working from the
local cache when the remote feed is unreachable.

Commands inside the browser:
  r              refresh the current category
  m              load the next page
  c <category>   switch category
  cats           list the saved categories
  setcats <c>..  replace the saved categories
  o <n>          open article n and mark it read
  b <n>          toggle bookmark on article n
  s <keyword>    search by keyword
  ev [n|stats]   show the session's recent observability events
  q              quit`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().BoolVar(&flagBrowseSync, "sync", false, "run background cache priming while browsing")
}

// browser holds the REPL's view of the world: the last listing printed,
// so numeric commands can resolve to article IDs.
type browser struct {
	app    *app
	list   *controllers.FeedListController
	search *controllers.SearchController
	ring   *eventlog.RingBuffer

	mu        sync.Mutex
	lastShown []news.Article
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	// Keep recent events in memory so the 'ev' command works without
	// re-reading the JSONL file.
	ring := eventlog.NewRingBuffer(256)
	a.evlog.SetRingBuffer(ring)

	list := controllers.NewFeedListController(a.repo, a.state, a.evlog, controllers.FeedListConfig{
		PageSize: a.cfg.List.PageSize,
	})
	search := controllers.NewSearchController(a.repo, a.evlog)
	b := &browser{app: a, list: list, search: search, ring: ring}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if flagBrowseSync {
		cats, err := a.state.SelectedCategories()
		if err == nil && len(cats) > 0 {
			c := coord.NewCoordinator(a.repo, a.evlog, cats, coord.SyncConfig{
				PageSize: a.cfg.Sync.PageSize,
				Pages:    a.cfg.Sync.Pages,
			})
			c.Start(ctx)
			defer c.Wait()
		}
	}

	done := make(chan struct{})
	go b.pumpEvents(done)

	fmt.Println("newsreader (type 'help' for commands)")
	list.Start()

	b.inputLoop(ctx)

	cancel()
	list.Close()
	search.Close()
	close(done)
	return nil
}

// pumpEvents prints controller events as they arrive. Listing output and
// the prompt interleave; this is a debug-grade surface, not a TUI.
func (b *browser) pumpEvents(done <-chan struct{}) {
	listEvents := b.list.Subscribe()
	searchEvents := b.search.Subscribe()
	for {
		select {
		case ev := <-listEvents:
			b.printEvent(ev)
		case ev := <-searchEvents:
			b.printEvent(ev)
		case <-done:
			return
		}
	}
}

func (b *browser) printEvent(ev controller.Event) {
	switch ev.Type {
	case controller.EventRefreshStarted:
		fmt.Printf("refreshing %s...\n", ev.Category)
	case controller.EventAppendStarted:
		fmt.Println("loading more...")
	case controller.EventSearchStarted:
		fmt.Printf("searching %s...\n", ev.Query)
	case controller.EventRefreshCompleted, controller.EventAppendCompleted:
		b.printListing(ev)
	case controller.EventSearchCompleted:
		b.printListing(ev)
	case controller.EventSearchEmpty:
		fmt.Println("no articles matched")
	case controller.EventError:
		fmt.Printf("! %s\n", ev.Message)
	}
}

func (b *browser) printListing(ev controller.Event) {
	b.mu.Lock()
	b.lastShown = ev.Articles
	b.mu.Unlock()

	for i, a := range ev.Articles {
		marker := " "
		if b.list.IsRead(a.ID) {
			marker = "•"
		}
		star := " "
		if ok, err := b.app.repo.IsBookmarked(a.ID); err == nil && ok {
			star = "★"
		}
		fmt.Printf("%3d %s%s %-10s %s  (%s, %s)\n", i+1, marker, star, a.Category, a.Title, a.Publisher, a.PublishedAt)
	}

	suffix := ""
	if ev.HasMore {
		suffix = ", more available"
	}
	if ev.Offline {
		suffix += " [offline copy]"
	}
	fmt.Printf("-- %d shown of %d%s\n", len(ev.Articles), ev.Total, suffix)
}

func (b *browser) inputLoop(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, rest := fields[0], fields[1:]
		switch cmd {
		case "q", "quit", "exit":
			return
		case "help":
			fmt.Print(browseCmd.Long, "\n")
		case "r":
			b.list.Refresh()
		case "m":
			b.list.LoadMore()
		case "c":
			if len(rest) != 1 {
				fmt.Println("usage: c <category>")
				continue
			}
			b.list.SelectCategory(rest[0])
		case "cats":
			b.printCategories()
		case "setcats":
			if err := b.list.SetCategories(rest); err != nil {
				fmt.Printf("! failed to save categories: %v\n", err)
			}
		case "o":
			b.openArticle(rest)
		case "b":
			b.toggleBookmark(rest)
		case "ev":
			b.printRecentEvents(rest)
		case "s":
			if len(rest) == 0 {
				fmt.Println("usage: s <keyword>")
				continue
			}
			state := b.list.State()
			b.search.Run(news.SearchQuery{
				Keyword:  strings.Join(rest, " "),
				Category: state.Category,
			})
		default:
			fmt.Printf("unknown command %q, try 'help'\n", cmd)
		}
	}
}

func (b *browser) printRecentEvents(args []string) {
	if len(args) == 1 && args[0] == "stats" {
		for kind, count := range b.ring.Stats() {
			fmt.Printf("%-16s %d\n", kind, count)
		}
		return
	}
	n := 10
	if len(args) == 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = v
		}
	}
	events := b.ring.Snapshot()
	if len(events) > n {
		events = events[len(events)-n:]
	}
	if len(events) == 0 {
		fmt.Println("no events this session")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s [%-7s] %-16s", ev.Time.Format("15:04:05.000"), ev.Comp, ev.Kind)
		if ev.Count > 0 {
			line += fmt.Sprintf(" n=%d", ev.Count)
		}
		if ev.Category != "" {
			line += " cat=" + ev.Category
		}
		if ev.Err != "" {
			line += " err=" + ev.Err
		}
		fmt.Println(line)
	}
}

func (b *browser) printCategories() {
	state := b.list.State()
	if len(state.Categories) == 0 {
		fmt.Println("no categories saved, use 'setcats <category>...'")
		return
	}
	for _, cat := range state.Categories {
		marker := " "
		if cat == state.Category {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, cat)
	}
}

// nthShown resolves a 1-based listing index from the last printed page.
func (b *browser) nthShown(args []string) (news.Article, bool) {
	if len(args) != 1 {
		fmt.Println("usage: o|b <n>")
		return news.Article{}, false
	}
	n, err := strconv.Atoi(args[0])
	b.mu.Lock()
	shown := b.lastShown
	b.mu.Unlock()
	if err != nil || n < 1 || n > len(shown) {
		fmt.Printf("no article %q on screen\n", args[0])
		return news.Article{}, false
	}
	return shown[n-1], true
}

func (b *browser) openArticle(args []string) {
	a, ok := b.nthShown(args)
	if !ok {
		return
	}
	fmt.Printf("\n%s\n%s · %s · %s\n\n%s\n\n", a.Title, a.Category, a.Publisher, a.PublishedAt, a.Content)
	b.list.MarkRead(a.ID)
}

func (b *browser) toggleBookmark(args []string) {
	a, ok := b.nthShown(args)
	if !ok {
		return
	}
	bookmarked, err := b.app.repo.ToggleBookmark(a.ID)
	switch {
	case err != nil:
		fmt.Printf("! bookmark failed: %v\n", err)
	case bookmarked:
		fmt.Printf("bookmarked %q\n", a.Title)
	default:
		fmt.Printf("removed bookmark on %q\n", a.Title)
	}
}
