// Package controllers provides built-in controller implementations.
package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/controller"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
	"github.com/yx-shi/NewsClient-sub001/internal/userstate"
)

// pageFetcher is the slice of the repository the list controller needs
// (dependency injection for testing).
type pageFetcher interface {
	FetchPage(ctx context.Context, category, keyword string, page, pageSize int) (news.PageResult, feed.Origin, error)
}

// stateStore persists category selection and read IDs.
type stateStore interface {
	SelectedCategories() ([]news.Category, error)
	SetSelectedCategories(categories []news.Category) error
	ReadIDs() (map[string]struct{}, error)
	SetReadIDs(ids map[string]struct{}) error
}

// phase is the list controller's activity state.
type phase int

const (
	phaseIdle phase = iota
	phaseRefreshing
	phaseAppending
)

// FeedListController owns the browsing list: one category at a time,
// page-by-page, with a read-state overlay.
//
// It is a state machine over {idle, refreshing, appending}. Refreshing and
// appending are mutually exclusive; a refresh issued mid-append supersedes
// the append, and the superseded response is discarded when it lands. The
// page cursor resets to 1 on every refresh and category switch and
// advances only after a successful append.
//
// # Thread Safety
//
// FeedListController is safe for concurrent use. Intents return
// immediately; fetches run on their own goroutine and report back through
// the event channel.
//
// # Event Channel
//
// Subscribe() returns a buffered channel that receives events. The channel
// has a buffer of 10 events. If the subscriber doesn't consume events fast
// enough, old events will be dropped (non-blocking send).
type FeedListController struct {
	id     string
	repo   pageFetcher
	state  stateStore
	events chan controller.Event
	evlog  *eventlog.Logger

	mu         sync.Mutex
	phase      phase
	category   news.Category
	categories []news.Category
	articles   []news.Article
	present    map[string]struct{}
	readIDs    map[string]struct{}
	page       int
	pageSize   int
	total      int
	hasMore    bool
	offline    bool
	gen        uint64

	// persistMu serializes read-state writes so a slow older write can
	// never overwrite a newer, larger set.
	persistMu sync.Mutex

	startMu sync.Mutex
	started bool

	wg sync.WaitGroup
}

// ListState is a point-in-time snapshot of the browsing list.
type ListState struct {
	Category   news.Category
	Categories []news.Category
	Articles   []news.Article
	ReadIDs    map[string]struct{}
	Page       int
	PageSize   int
	Total      int
	HasMore    bool
	Refreshing bool
	Appending  bool
	Offline    bool
}

// FeedListConfig configures the list controller.
type FeedListConfig struct {
	PageSize int // Articles per fetched page (default: 10)
}

// DefaultFeedListConfig returns sensible defaults.
func DefaultFeedListConfig() FeedListConfig {
	return FeedListConfig{PageSize: 10}
}

// NewFeedListController creates the list controller with the real
// repository and state store.
func NewFeedListController(repo *feed.Repository, state *userstate.Store, evlog *eventlog.Logger, cfg FeedListConfig) *FeedListController {
	return NewFeedListControllerWith(repo, state, evlog, cfg)
}

// NewFeedListControllerWith allows injecting custom dependencies (for
// testing). A nil event logger is replaced with a null logger.
func NewFeedListControllerWith(repo pageFetcher, state stateStore, evlog *eventlog.Logger, cfg FeedListConfig) *FeedListController {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if evlog == nil {
		evlog = eventlog.NewNullLogger()
	}
	return &FeedListController{
		id:       "feed-list",
		repo:     repo,
		state:    state,
		events:   make(chan controller.Event, 10),
		evlog:    evlog,
		present:  make(map[string]struct{}),
		readIDs:  make(map[string]struct{}),
		page:     1,
		pageSize: cfg.PageSize,
	}
}

// ID returns "feed-list".
func (c *FeedListController) ID() string {
	return c.id
}

// Start loads the user's saved preferences and, when at least one category
// is saved, auto-selects the first and kicks off the initial refresh. A
// client with zero configured categories settles in idle with an empty
// list, never stuck refreshing.
//
// Start is idempotent; only the first call does anything.
func (c *FeedListController) Start() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	if c.started {
		return
	}
	c.started = true

	categories, err := c.state.SelectedCategories()
	if err != nil {
		logging.Warn("failed to load saved categories", "error", err)
	}
	read, err := c.state.ReadIDs()
	if err != nil {
		logging.Warn("failed to load read IDs", "error", err)
	}

	c.mu.Lock()
	c.categories = categories
	for id := range read {
		c.readIDs[id] = struct{}{}
	}
	if c.category == "" && len(categories) > 0 {
		c.category = categories[0]
		c.startRefreshLocked()
	}
	c.mu.Unlock()
}

// Refresh reloads page 1 of the current category, replacing the list. A
// refresh issued while one is already in flight is a no-op; a refresh
// issued mid-append supersedes the append.
func (c *FeedListController) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == phaseRefreshing {
		return
	}
	c.startRefreshLocked()
}

// LoadMore fetches the next page and appends it. It is a no-op unless the
// controller is idle and the feed reported more data.
func (c *FeedListController) LoadMore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != phaseIdle || !c.hasMore || c.category == "" {
		return
	}
	c.phase = phaseAppending
	c.sendEvent(controller.Event{Type: controller.EventAppendStarted, Category: c.category})

	gen := c.gen
	next := c.page + 1
	c.wg.Add(1)
	go c.fetch(gen, c.category, next, true)
}

// SelectCategory switches the list to another category. Selecting the
// current category is a no-op; a real switch resets pagination and
// triggers a refresh, superseding any in-flight fetch.
func (c *FeedListController) SelectCategory(category news.Category) {
	if category == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if category == c.category {
		return
	}
	c.category = category
	c.evlog.Emit(eventlog.Event{
		Kind:     eventlog.KindListCategory,
		Level:    eventlog.LevelInfo,
		Comp:     "list",
		Category: category,
	})
	c.startRefreshLocked()
}

// SetCategories replaces the user's saved category list and persists it
// synchronously. When the current category survives the edit nothing else
// changes; when it is removed the first remaining category is selected,
// and an empty list clears the controller back to idle.
func (c *FeedListController) SetCategories(categories []news.Category) error {
	cleaned := make([]news.Category, 0, len(categories))
	dedup := make(map[news.Category]struct{}, len(categories))
	for _, cat := range categories {
		if cat == "" {
			continue
		}
		if _, ok := dedup[cat]; ok {
			continue
		}
		dedup[cat] = struct{}{}
		cleaned = append(cleaned, cat)
	}

	if err := c.state.SetSelectedCategories(cleaned); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = cleaned
	if _, ok := dedup[c.category]; ok && c.category != "" {
		return nil
	}
	if len(cleaned) == 0 {
		c.clearLocked()
		return nil
	}
	c.category = cleaned[0]
	c.evlog.Emit(eventlog.Event{
		Kind:     eventlog.KindListCategory,
		Level:    eventlog.LevelInfo,
		Comp:     "list",
		Category: c.category,
	})
	c.startRefreshLocked()
	return nil
}

// MarkRead records that the user opened an article and persists the full
// read set in the background. Read-state is a soft UX signal: a
// persistence failure is logged, never surfaced.
func (c *FeedListController) MarkRead(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.readIDs[id]; ok {
		c.mu.Unlock()
		return
	}
	c.readIDs[id] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Snapshot under persistMu, not at mark time: the last writer
		// to run always carries the newest full set.
		c.persistMu.Lock()
		defer c.persistMu.Unlock()
		c.mu.Lock()
		snapshot := make(map[string]struct{}, len(c.readIDs))
		for rid := range c.readIDs {
			snapshot[rid] = struct{}{}
		}
		c.mu.Unlock()
		if err := c.state.SetReadIDs(snapshot); err != nil {
			logging.Warn("failed to persist read IDs", "article", id, "error", err)
		}
	}()
}

// IsRead reports whether the user has opened the article this session or
// any earlier one.
func (c *FeedListController) IsRead(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.readIDs[id]
	return ok
}

// Categories returns the saved category list.
func (c *FeedListController) Categories() []news.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]news.Category(nil), c.categories...)
}

// State returns a snapshot of the list. The returned slices and map are
// copies; mutating them does not affect the controller.
func (c *FeedListController) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	read := make(map[string]struct{}, len(c.readIDs))
	for id := range c.readIDs {
		read[id] = struct{}{}
	}
	return ListState{
		Category:   c.category,
		Categories: append([]news.Category(nil), c.categories...),
		Articles:   append([]news.Article(nil), c.articles...),
		ReadIDs:    read,
		Page:       c.page,
		PageSize:   c.pageSize,
		Total:      c.total,
		HasMore:    c.hasMore,
		Refreshing: c.phase == phaseRefreshing,
		Appending:  c.phase == phaseAppending,
		Offline:    c.offline,
	}
}

// Subscribe returns the event channel.
//
// The returned channel has a buffer of 10 events. Subscribers should
// consume events promptly to avoid dropped events.
//
// The channel is never closed - it lives for the lifetime of the controller.
func (c *FeedListController) Subscribe() <-chan controller.Event {
	return c.events
}

// Close waits for in-flight fetches and read-state writes to settle.
func (c *FeedListController) Close() {
	c.wg.Wait()
}

// startRefreshLocked begins a page-1 fetch for the current category. Any
// in-flight fetch is superseded: bumping the generation makes its response
// land stale. Caller must hold c.mu.
func (c *FeedListController) startRefreshLocked() {
	if c.category == "" {
		return
	}
	c.phase = phaseRefreshing
	c.gen++
	c.sendEvent(controller.Event{Type: controller.EventRefreshStarted, Category: c.category})

	c.wg.Add(1)
	go c.fetch(c.gen, c.category, 1, false)
}

// clearLocked resets the controller to an empty idle list. Caller must
// hold c.mu.
func (c *FeedListController) clearLocked() {
	c.category = ""
	c.articles = nil
	c.present = make(map[string]struct{})
	c.page = 1
	c.total = 0
	c.hasMore = false
	c.offline = false
	c.phase = phaseIdle
	c.gen++
}

// fetch runs one page fetch and merges the outcome. It compares its
// generation against the controller's before touching state; a mismatch
// means a newer refresh or category switch superseded this fetch and the
// response must be dropped, not merged.
func (c *FeedListController) fetch(gen uint64, category news.Category, page int, appending bool) {
	defer c.wg.Done()
	start := time.Now()
	result, origin, err := c.repo.FetchPage(context.Background(), category, "", page, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.evlog.Emit(eventlog.Event{
			Kind:     eventlog.KindStaleDrop,
			Level:    eventlog.LevelDebug,
			Comp:     "list",
			Page:     page,
			Category: category,
		})
		return
	}
	c.phase = phaseIdle

	if err != nil {
		// Remote failures were already converted to cache fallbacks; the
		// only error landing here is a cache read failure with nothing
		// left to serve. The cursor and hasMore stay untouched so the
		// next attempt retries the same page.
		c.sendEvent(controller.Event{
			Type:     controller.EventError,
			Err:      err,
			Message:  "unable to load articles: " + err.Error(),
			Category: category,
		})
		return
	}

	c.offline = origin == feed.OriginCache
	if appending {
		added := c.appendUniqueLocked(result.Articles)
		c.page = page
		c.total = result.TotalCount
		c.hasMore = result.HasMore
		c.evlog.Emit(eventlog.Event{
			Kind:     eventlog.KindListAppend,
			Level:    eventlog.LevelDebug,
			Comp:     "list",
			Dur:      time.Since(start),
			Count:    added,
			Page:     page,
			Category: category,
		})
		c.sendEvent(c.completedEventLocked(controller.EventAppendCompleted))
		return
	}

	c.articles = nil
	c.present = make(map[string]struct{})
	c.appendUniqueLocked(result.Articles)
	c.page = 1
	c.total = result.TotalCount
	c.hasMore = result.HasMore
	c.evlog.Emit(eventlog.Event{
		Kind:     eventlog.KindListRefresh,
		Level:    eventlog.LevelDebug,
		Comp:     "list",
		Dur:      time.Since(start),
		Count:    len(c.articles),
		Category: category,
	})
	c.sendEvent(c.completedEventLocked(controller.EventRefreshCompleted))
}

// appendUniqueLocked appends articles not already in the list, keeping
// the first occurrence at its original position. Returns how many were
// added. Caller must hold c.mu.
func (c *FeedListController) appendUniqueLocked(articles []news.Article) int {
	added := 0
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if _, ok := c.present[a.ID]; ok {
			continue
		}
		c.present[a.ID] = struct{}{}
		c.articles = append(c.articles, a)
		added++
	}
	return added
}

// completedEventLocked builds a completion event carrying the full
// current list. Caller must hold c.mu.
func (c *FeedListController) completedEventLocked(t controller.EventType) controller.Event {
	return controller.Event{
		Type:     t,
		Articles: append([]news.Article(nil), c.articles...),
		Total:    c.total,
		HasMore:  c.hasMore,
		Category: c.category,
		Offline:  c.offline,
	}
}

// sendEvent sends an event to subscribers without blocking.
// If the channel is full, the event is dropped.
func (c *FeedListController) sendEvent(event controller.Event) {
	select {
	case c.events <- event:
	default:
		// Channel full, drop event (subscriber not keeping up)
	}
}
