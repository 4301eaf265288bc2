package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/controller"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

// searcher is the slice of the repository the search controller needs
// (dependency injection for testing).
type searcher interface {
	Search(ctx context.Context, keyword, category string) (news.PageResult, error)
	SearchByDateRange(ctx context.Context, dr news.DateRange, category string) (news.PageResult, error)
	SearchCombined(ctx context.Context, keyword string, dr news.DateRange, category string) (news.PageResult, error)
}

// SearchPhase is the search controller's activity state.
type SearchPhase int

const (
	SearchIdle    SearchPhase = iota // No query issued yet
	SearchLoading                    // Query in flight
	SearchLoaded                     // Last query returned articles
	SearchEmpty                      // Last query succeeded with zero articles
	SearchFailed                     // Last query failed in transit
)

// String returns a short label for logs.
func (p SearchPhase) String() string {
	switch p {
	case SearchIdle:
		return "idle"
	case SearchLoading:
		return "loading"
	case SearchLoaded:
		return "loaded"
	case SearchEmpty:
		return "empty"
	case SearchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SearchController runs keyword, date-range, and combined searches.
//
// It is independent of the browsing list: results fully replace the
// previous ones, never append, and there is no pagination. Every Run is a
// fresh remote call. A successful call with zero articles lands in
// SearchEmpty; a transport failure lands in SearchFailed. The two are
// distinct on purpose: "nothing matched" and "could not ask" call for
// different UI.
//
// Issuing a new query does not cancel the one in flight; when the older
// response arrives it is discarded.
type SearchController struct {
	id     string
	repo   searcher
	events chan controller.Event
	evlog  *eventlog.Logger

	mu      sync.Mutex
	phase   SearchPhase
	query   news.SearchQuery
	results []news.Article
	total   int
	hasMore bool
	message string
	gen     uint64

	wg sync.WaitGroup
}

// SearchState is a point-in-time snapshot of the search surface.
type SearchState struct {
	Phase   SearchPhase
	Query   news.SearchQuery
	Results []news.Article
	Total   int
	HasMore bool
	Message string // Human-readable failure summary, set only in SearchFailed
}

// NewSearchController creates the search controller with the real
// repository.
func NewSearchController(repo *feed.Repository, evlog *eventlog.Logger) *SearchController {
	return NewSearchControllerWith(repo, evlog)
}

// NewSearchControllerWith allows injecting a custom repository (for
// testing). A nil event logger is replaced with a null logger.
func NewSearchControllerWith(repo searcher, evlog *eventlog.Logger) *SearchController {
	if evlog == nil {
		evlog = eventlog.NewNullLogger()
	}
	return &SearchController{
		id:     "search",
		repo:   repo,
		events: make(chan controller.Event, 10),
		evlog:  evlog,
	}
}

// ID returns "search".
func (s *SearchController) ID() string {
	return s.id
}

// Run issues a search. A query with nothing to ask (no keyword, no date
// range) is ignored. Run returns immediately; the outcome arrives as an
// event and through State().
func (s *SearchController) Run(q news.SearchQuery) {
	if q.Kind() == news.NoQuery {
		return
	}
	s.mu.Lock()
	s.phase = SearchLoading
	s.query = q
	s.message = ""
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.sendEvent(controller.Event{Type: controller.EventSearchStarted, Query: q.String()})
	s.wg.Add(1)
	go s.run(gen, q)
}

// State returns a snapshot of the search surface. The returned slice is a
// copy.
func (s *SearchController) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchState{
		Phase:   s.phase,
		Query:   s.query,
		Results: append([]news.Article(nil), s.results...),
		Total:   s.total,
		HasMore: s.hasMore,
		Message: s.message,
	}
}

// Subscribe returns the event channel.
//
// The returned channel has a buffer of 10 events and is never closed.
func (s *SearchController) Subscribe() <-chan controller.Event {
	return s.events
}

// Close waits for an in-flight query to settle.
func (s *SearchController) Close() {
	s.wg.Wait()
}

func (s *SearchController) run(gen uint64, q news.SearchQuery) {
	defer s.wg.Done()
	start := time.Now()
	ctx := context.Background()

	var result news.PageResult
	var err error
	switch q.Kind() {
	case news.KeywordOnly:
		result, err = s.repo.Search(ctx, q.Keyword, q.Category)
	case news.DateOnly:
		result, err = s.repo.SearchByDateRange(ctx, *q.Range, q.Category)
	case news.Combined:
		result, err = s.repo.SearchCombined(ctx, q.Keyword, *q.Range, q.Category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.evlog.Emit(eventlog.Event{
			Kind:  eventlog.KindStaleDrop,
			Level: eventlog.LevelDebug,
			Comp:  "search",
			Query: q.String(),
		})
		return
	}

	switch {
	case err != nil:
		s.phase = SearchFailed
		s.results = nil
		s.total = 0
		s.hasMore = false
		s.message = "search failed: " + err.Error()
		s.evlog.Emit(eventlog.Event{
			Kind:  eventlog.KindSearchError,
			Level: eventlog.LevelWarn,
			Comp:  "search",
			Query: q.String(),
			Err:   err.Error(),
		})
		s.sendEvent(controller.Event{
			Type:    controller.EventError,
			Err:     err,
			Message: s.message,
			Query:   q.String(),
		})
	case len(result.Articles) == 0:
		s.phase = SearchEmpty
		s.results = nil
		s.total = 0
		s.hasMore = false
		s.evlog.Emit(eventlog.Event{
			Kind:  eventlog.KindSearchEmpty,
			Level: eventlog.LevelInfo,
			Comp:  "search",
			Dur:   time.Since(start),
			Query: q.String(),
		})
		s.sendEvent(controller.Event{Type: controller.EventSearchEmpty, Query: q.String()})
	default:
		s.phase = SearchLoaded
		s.results = append([]news.Article(nil), result.Articles...)
		s.total = result.TotalCount
		s.hasMore = result.HasMore
		s.evlog.Emit(eventlog.Event{
			Kind:  eventlog.KindSearchRun,
			Level: eventlog.LevelInfo,
			Comp:  "search",
			Dur:   time.Since(start),
			Count: len(s.results),
			Query: q.String(),
		})
		s.sendEvent(controller.Event{
			Type:     controller.EventSearchCompleted,
			Articles: append([]news.Article(nil), s.results...),
			Total:    s.total,
			HasMore:  s.hasMore,
			Query:    q.String(),
		})
	}
}

func (s *SearchController) sendEvent(event controller.Event) {
	select {
	case s.events <- event:
	default:
		// Channel full, drop event (subscriber not keeping up)
	}
}
