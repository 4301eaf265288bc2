// Package coord provides background cache priming for the news reader.
//
// The coordinator walks the user's selected categories and pulls their
// first pages through the repository, which caches every article it sees.
// A later offline session then has something to fall back to.
package coord

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

// syncInterval is the time between sync passes in periodic mode.
const syncInterval = 30 * time.Minute

// syncTimeout is the timeout for each individual page fetch.
const syncTimeout = 30 * time.Second

// maxConcurrentSyncs limits parallel category syncs.
const maxConcurrentSyncs = 5

// ErrRemoteUnavailable marks a category whose fetch degraded to cached
// rows: the pass succeeded formally but primed nothing new.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// pager interface for dependency injection (testing).
type pager interface {
	FetchPage(ctx context.Context, category, keyword string, page, pageSize int) (news.PageResult, feed.Origin, error)
}

// Result is one category's outcome within a sync pass.
type Result struct {
	Category news.Category
	Pages    int // Pages fetched from the remote
	Fetched  int // Articles fetched (and therefore cached)
	Err      error
}

// Summary aggregates a whole sync pass.
type Summary struct {
	Fetched int // Articles cached across all categories
	Failed  int // Categories that could not be primed
	Results []Result
}

// SyncConfig configures the coordinator.
type SyncConfig struct {
	PageSize int // Articles per page (default: 20)
	Pages    int // Pages fetched per category (default: 3)
}

// DefaultSyncConfig returns sensible defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{PageSize: 20, Pages: 3}
}

// Coordinator primes the local cache for offline browsing. Cancelling
// the Start context is the only stop mechanism.
type Coordinator struct {
	repo       pager
	evlog      *eventlog.Logger
	categories []news.Category // fixed at construction
	pageSize   int
	pages      int
	wg         sync.WaitGroup
}

// NewCoordinator creates a Coordinator with the real repository.
func NewCoordinator(repo *feed.Repository, evlog *eventlog.Logger, categories []news.Category, cfg SyncConfig) *Coordinator {
	return NewCoordinatorWithPager(repo, evlog, categories, cfg)
}

// NewCoordinatorWithPager allows injecting a custom pager (for testing).
// A nil event logger is replaced with a null logger.
func NewCoordinatorWithPager(repo pager, evlog *eventlog.Logger, categories []news.Category, cfg SyncConfig) *Coordinator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.Pages <= 0 {
		cfg.Pages = 3
	}
	if evlog == nil {
		evlog = eventlog.NewNullLogger()
	}

	// Detach from the caller's slice.
	cats := make([]news.Category, len(categories))
	copy(cats, categories)

	return &Coordinator{
		repo:       repo,
		evlog:      evlog,
		categories: cats,
		pageSize:   cfg.PageSize,
		pages:      cfg.Pages,
	}
}

// Start begins periodic syncing. Call with a cancellable context.
// Performs an initial sync immediately, then every 30 minutes.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.SyncOnce(ctx)

		ticker := time.NewTicker(syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.SyncOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// SyncOnce syncs all categories in parallel and returns the aggregate.
// Individual category failures never abort the pass.
func (c *Coordinator) SyncOnce(ctx context.Context) Summary {
	var g errgroup.Group
	g.SetLimit(maxConcurrentSyncs)

	results := make([]Result, len(c.categories))
	for i, category := range c.categories {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Category: category, Err: ctx.Err()}
				return nil
			}
			results[i] = c.syncCategory(ctx, category)
			return nil // errors are reported per-category, never fail the group
		})
	}
	_ = g.Wait()

	summary := Summary{Results: results}
	for _, r := range results {
		summary.Fetched += r.Fetched
		if r.Err != nil {
			summary.Failed++
		}
	}
	logging.Info("sync pass finished",
		"categories", len(results), "articles", summary.Fetched, "failed", summary.Failed)
	return summary
}

// syncCategory walks one category's pages with a per-page timeout. It
// stops at the configured page limit, at the feed's end, or on the first
// failure.
func (c *Coordinator) syncCategory(ctx context.Context, category news.Category) Result {
	r := Result{Category: category}
	start := time.Now()

	for page := 1; page <= c.pages; page++ {
		fetchCtx, cancel := context.WithTimeout(ctx, syncTimeout)
		result, origin, err := c.repo.FetchPage(fetchCtx, category, "", page, c.pageSize)
		cancel()
		if err != nil {
			r.Err = err
			break
		}
		if origin == feed.OriginCache {
			// The repository degraded to cached rows, so the remote is
			// down and this pass stored nothing new.
			r.Err = ErrRemoteUnavailable
			break
		}
		r.Pages++
		r.Fetched += len(result.Articles)
		if !result.HasMore {
			break
		}
	}

	event := eventlog.Event{
		Kind:     eventlog.KindSyncRun,
		Level:    eventlog.LevelInfo,
		Comp:     "coord",
		Dur:      time.Since(start),
		Count:    r.Fetched,
		Page:     r.Pages,
		Category: category,
	}
	if r.Err != nil {
		event.Level = eventlog.LevelWarn
		event.Err = r.Err.Error()
		logging.Warn("category sync failed", "category", category, "error", r.Err)
	}
	c.evlog.Emit(event)
	return r
}
