package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yx-shi/NewsClient-sub001/internal/controller"
	"github.com/yx-shi/NewsClient-sub001/internal/controller/controllers"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

var (
	flagSearchCategory string
	flagSearchFrom     string
	flagSearchTo       string
	flagSearchYear     int
	flagSearchMonth    int
	flagSearchDay      int
)

var searchCmd = &cobra.Command{
	Use:   "search [keyword...]",
	Short: "Search the remote feed",
	Long: `Search by keyword, by publication date, or both. Search always asks
the remote feed; there is no cached fallback, so a failure is reported
as a failure rather than answered with stale results.

Dates can be given as an explicit range (--from/--to) or as a period
(--year, optionally --month, optionally --day). A month period covers
the whole month, leap years included.`,
	Example: `  newsreader search 芯片
  newsreader search --year 2025 --month 2
  newsreader search 联赛 --category 体育 --from 2025-06-01 --to 2025-06-30`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchCategory, "category", "", "restrict matches to one category")
	searchCmd.Flags().StringVar(&flagSearchFrom, "from", "", "range start (YYYY-MM-DD), requires --to")
	searchCmd.Flags().StringVar(&flagSearchTo, "to", "", "range end (YYYY-MM-DD), requires --from")
	searchCmd.Flags().IntVar(&flagSearchYear, "year", 0, "period year")
	searchCmd.Flags().IntVar(&flagSearchMonth, "month", 0, "period month (1-12), needs --year")
	searchCmd.Flags().IntVar(&flagSearchDay, "day", 0, "period day, needs --month")
}

func buildQuery(args []string) (news.SearchQuery, error) {
	q := news.SearchQuery{
		Keyword:  strings.Join(args, " "),
		Category: flagSearchCategory,
	}

	switch {
	case flagSearchFrom != "" || flagSearchTo != "":
		if flagSearchFrom == "" || flagSearchTo == "" {
			return q, fmt.Errorf("--from and --to must be given together")
		}
		for _, d := range []string{flagSearchFrom, flagSearchTo} {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return q, fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
			}
		}
		if flagSearchTo < flagSearchFrom {
			return q, fmt.Errorf("--to %s is before --from %s", flagSearchTo, flagSearchFrom)
		}
		q.Range = &news.DateRange{Start: flagSearchFrom, End: flagSearchTo}
	case flagSearchYear != 0:
		if flagSearchMonth < 0 || flagSearchMonth > 12 {
			return q, fmt.Errorf("invalid --month %d", flagSearchMonth)
		}
		if flagSearchDay != 0 && flagSearchMonth == 0 {
			return q, fmt.Errorf("--day needs --month")
		}
		r := news.PeriodRange(flagSearchYear, flagSearchMonth, flagSearchDay)
		q.Range = &r
	case flagSearchMonth != 0 || flagSearchDay != 0:
		return q, fmt.Errorf("--month and --day need --year")
	}

	if q.Kind() == news.NoQuery {
		return q, fmt.Errorf("nothing to search for: give a keyword or a date period")
	}
	return q, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(args)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	search := controllers.NewSearchController(a.repo, a.evlog)
	defer search.Close()
	events := search.Subscribe()
	search.Run(query)

	timeout := 2*time.Duration(a.cfg.Feed.Timeout) + 5*time.Second
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case controller.EventSearchStarted:
				continue
			case controller.EventSearchEmpty:
				fmt.Println("no articles matched")
				return nil
			case controller.EventSearchCompleted:
				printArticles(ev.Articles)
				if ev.HasMore {
					fmt.Printf("-- %d shown of %d, narrow the query to see the rest\n", len(ev.Articles), ev.Total)
				} else {
					fmt.Printf("-- %d shown of %d\n", len(ev.Articles), ev.Total)
				}
				return nil
			case controller.EventError:
				return fmt.Errorf("%s", ev.Message)
			}
		case <-time.After(timeout):
			return fmt.Errorf("search timed out after %s", timeout)
		}
	}
}

func printArticles(articles []news.Article) {
	for i, a := range articles {
		fmt.Printf("%3d %-10s %s  (%s, %s)\n", i+1, a.Category, a.Title, a.Publisher, a.PublishedAt)
	}
}
