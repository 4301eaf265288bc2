package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yx-shi/NewsClient-sub001/internal/config"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
)

var (
	flagEventsTail   int
	flagEventsKind   string
	flagEventsLevel  string
	flagEventsComp   string
	flagEventsJSON   bool
	flagEventsFollow bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "JSONL event log viewer",
	Long: `Show recent observability events: fetches, fallbacks, cache writes,
list state changes, and sync passes. Events come from the JSONL log the
client appends to as it runs.`,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().IntVarP(&flagEventsTail, "tail", "n", 50, "number of recent events to show")
	eventsCmd.Flags().StringVar(&flagEventsKind, "kind", "", "filter by kind prefix (e.g. 'fetch', 'cache.upsert')")
	eventsCmd.Flags().StringVar(&flagEventsLevel, "level", "", "minimum level: debug, info, warn, error")
	eventsCmd.Flags().StringVar(&flagEventsComp, "comp", "", "filter by component name")
	eventsCmd.Flags().BoolVar(&flagEventsJSON, "json", false, "output JSON lines")
	eventsCmd.Flags().BoolVarP(&flagEventsFollow, "follow", "f", false, "keep printing new events")
}

func levelRank(level eventlog.Level) int {
	switch level {
	case eventlog.LevelDebug:
		return 0
	case eventlog.LevelInfo:
		return 1
	case eventlog.LevelWarn:
		return 2
	case eventlog.LevelError:
		return 3
	default:
		return 0
	}
}

func matchEvent(ev eventlog.Event) bool {
	if flagEventsKind != "" && !strings.HasPrefix(string(ev.Kind), flagEventsKind) {
		return false
	}
	if flagEventsLevel != "" && levelRank(ev.Level) < levelRank(eventlog.Level(flagEventsLevel)) {
		return false
	}
	if flagEventsComp != "" && ev.Comp != flagEventsComp {
		return false
	}
	return true
}

func formatEvent(ev eventlog.Event) string {
	if flagEventsJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return ""
		}
		return string(data)
	}

	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-16s",
		ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.1fms)", ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", ev.Page))
	}
	if ev.Category != "" {
		parts = append(parts, "cat="+ev.Category)
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	path := cfg.EventLogPath()

	// Read everything and filter before applying the tail window, so
	// "--kind fetch -n 10" means the last 10 fetch events, not fetch
	// events among the last 10 lines.
	all, err := eventlog.Tail(path, 0)
	if err != nil {
		return fmt.Errorf("no event log at %s: run the client first", path)
	}
	var matched []eventlog.Event
	for _, ev := range all {
		if matchEvent(ev) {
			matched = append(matched, ev)
		}
	}
	if flagEventsTail > 0 && len(matched) > flagEventsTail {
		matched = matched[len(matched)-flagEventsTail:]
	}
	for _, ev := range matched {
		if line := formatEvent(ev); line != "" {
			fmt.Println(line)
		}
	}
	if !flagEventsFollow {
		return nil
	}

	// Follow mode: poll for lines appended from here on.
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return nil
		}
		var ev eventlog.Event
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if matchEvent(ev) {
			if out := formatEvent(ev); out != "" {
				fmt.Println(out)
			}
		}
	}
}
