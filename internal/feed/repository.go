// Package feed reconciles the remote feed with the local cache.
//
// Repository owns the degraded-mode policy: a page fetch that fails at the
// network or protocol layer is served from the cache instead, as one final
// page that never claims more data exists. Search is remote-only; a failed
// search yields an empty result plus the error, never cache rows, because
// the cache's category/keyword filter is not a search index and quietly
// narrower results would masquerade as hits.
//
// Every path returns a well-formed PageResult. Raw transport errors never
// cross this boundary: they arrive already classified by the client and
// leave either absorbed (fallback) or wrapped for display.
package feed

import (
	"context"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/feedapi"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

// RemoteClient is the slice of the feed API the repository needs.
type RemoteClient interface {
	ListPage(ctx context.Context, p feedapi.ListParams) (news.PageResult, error)
	Search(ctx context.Context, keyword, category string) (news.PageResult, error)
	SearchByDate(ctx context.Context, r news.DateRange, category string) (news.PageResult, error)
	SearchCombined(ctx context.Context, keyword string, r news.DateRange, category string) (news.PageResult, error)
}

// CacheStore is the slice of the local store the repository needs.
type CacheStore interface {
	Upsert(articles []news.Article) error
	QueryByCategoryAndKeyword(category, keyword string) ([]news.Article, error)
	GetByID(id string) (*news.Article, error)
	QueryBookmarked() ([]news.Article, error)
	QueryRecent(limit, offset int) ([]news.Article, error)
	SetBookmark(id string, bookmarked bool) (bool, error)
	IsBookmarked(id string) (bool, error)
	DeleteUnbookmarked() (int64, error)
}

// Origin tells where a page result came from.
type Origin int

const (
	OriginRemote Origin = iota
	OriginCache
)

// Repository is the single owner of cache writes. All upserts, bookmark
// toggles, and history clears funnel through it.
type Repository struct {
	remote RemoteClient
	cache  CacheStore
	events *eventlog.Logger
}

// NewRepository wires the repository. A nil event logger is replaced with
// a null logger.
func NewRepository(remote RemoteClient, cache CacheStore, events *eventlog.Logger) *Repository {
	if events == nil {
		events = eventlog.NewNullLogger()
	}
	return &Repository{remote: remote, cache: cache, events: events}
}

// FetchPage fetches one page of the feed, falling back to the cache when
// the remote call fails.
//
// On remote success the articles are cached best-effort and the result is
// page-relative. On remote failure the cache rows matching the same
// filters come back as one final page (hasMore always false) with a nil
// error; the returned Origin tells the caller it is browsing offline. The
// only error this method surfaces is a cache read failure during
// fallback, when there is nothing left to serve.
func (r *Repository) FetchPage(ctx context.Context, category, keyword string, page, pageSize int) (news.PageResult, Origin, error) {
	result, err := r.remote.ListPage(ctx, feedapi.ListParams{
		Page:     page,
		PageSize: pageSize,
		Keyword:  keyword,
		Category: category,
	})
	if err == nil {
		r.cacheArticles(result.Articles)
		return result, OriginRemote, nil
	}

	logging.Warn("remote fetch failed, serving cache", "page", page, "category", category, "error", err)
	start := time.Now()
	cached, cacheErr := r.cache.QueryByCategoryAndKeyword(category, keyword)
	if cacheErr != nil {
		// Nothing left to fall back to. This is the one persistence
		// failure that must surface.
		r.events.Error(eventlog.KindCacheError, "repo", cacheErr)
		return news.PageResult{}, OriginCache, cacheErr
	}

	r.events.Emit(eventlog.Event{
		Kind:     eventlog.KindFetchFallback,
		Level:    eventlog.LevelWarn,
		Comp:     "repo",
		Dur:      time.Since(start),
		Count:    len(cached),
		Page:     page,
		Category: category,
		Err:      err.Error(),
	})
	return news.FinalResult(cached), OriginCache, nil
}

// Search fetches keyword matches from the remote feed. On failure the
// result is empty and the error is returned for display; there is no
// cache fallback for search.
func (r *Repository) Search(ctx context.Context, keyword, category string) (news.PageResult, error) {
	result, err := r.remote.Search(ctx, keyword, category)
	return r.finishSearch(result, err)
}

// SearchByDateRange fetches articles published inside r. The range arrives
// normalized; the repository does no date arithmetic.
func (r *Repository) SearchByDateRange(ctx context.Context, dr news.DateRange, category string) (news.PageResult, error) {
	result, err := r.remote.SearchByDate(ctx, dr, category)
	return r.finishSearch(result, err)
}

// SearchCombined fetches articles matching both keyword and range.
func (r *Repository) SearchCombined(ctx context.Context, keyword string, dr news.DateRange, category string) (news.PageResult, error) {
	result, err := r.remote.SearchCombined(ctx, keyword, dr, category)
	return r.finishSearch(result, err)
}

func (r *Repository) finishSearch(result news.PageResult, err error) (news.PageResult, error) {
	if err != nil {
		return news.PageResult{}, err
	}
	r.cacheArticles(result.Articles)
	return result, nil
}

// ArticleByID looks up a cached article. The remote API has no
// single-article endpoint, so this is definitionally local; a miss is
// (nil, nil).
func (r *Repository) ArticleByID(id string) (*news.Article, error) {
	return r.cache.GetByID(id)
}

// ToggleBookmark flips an article's bookmark flag and returns the new
// value. An ID absent from the cache toggles to false.
func (r *Repository) ToggleBookmark(id string) (bool, error) {
	current, err := r.cache.IsBookmarked(id)
	if err != nil {
		return false, err
	}
	return r.cache.SetBookmark(id, !current)
}

// IsBookmarked reports an article's bookmark flag.
func (r *Repository) IsBookmarked(id string) (bool, error) {
	return r.cache.IsBookmarked(id)
}

// Bookmarked lists all bookmarked articles.
func (r *Repository) Bookmarked() ([]news.Article, error) {
	return r.cache.QueryBookmarked()
}

// Recent lists one page of cached articles by recency.
func (r *Repository) Recent(limit, offset int) ([]news.Article, error) {
	return r.cache.QueryRecent(limit, offset)
}

// ClearHistory deletes all unbookmarked cache rows and returns how many
// were removed.
func (r *Repository) ClearHistory() (int64, error) {
	deleted, err := r.cache.DeleteUnbookmarked()
	if err != nil {
		return 0, err
	}
	logging.Info("history cleared", "deleted", deleted)
	r.events.Emit(eventlog.Event{
		Kind:  eventlog.KindCacheClear,
		Level: eventlog.LevelInfo,
		Comp:  "repo",
		Count: int(deleted),
	})
	return deleted, nil
}

// cacheArticles upserts fetched articles best-effort. Caching is a side
// effect of fetching; a persistence failure here is logged and absorbed,
// never propagated to the fetch caller.
func (r *Repository) cacheArticles(articles []news.Article) {
	if len(articles) == 0 {
		return
	}
	start := time.Now()
	if err := r.cache.Upsert(articles); err != nil {
		logging.Warn("failed to cache fetched articles", "count", len(articles), "error", err)
		r.events.Error(eventlog.KindCacheError, "repo", err)
		return
	}
	r.events.Emit(eventlog.Event{
		Kind:  eventlog.KindCacheUpsert,
		Level: eventlog.LevelDebug,
		Comp:  "repo",
		Dur:   time.Since(start),
		Count: len(articles),
	})
}
