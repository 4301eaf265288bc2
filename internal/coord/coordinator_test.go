package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/apperr"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

type pageCall struct {
	category news.Category
	page     int
	pageSize int
}

// mockPager implements the pager interface for testing.
type mockPager struct {
	mu         sync.Mutex
	calls      []pageCall
	fetchDelay time.Duration
	fn         func(c pageCall) (news.PageResult, feed.Origin, error)
	fetchCount atomic.Int32
}

func (m *mockPager) FetchPage(ctx context.Context, category, keyword string, page, pageSize int) (news.PageResult, feed.Origin, error) {
	m.fetchCount.Add(1)

	// Simulate delay if configured
	if m.fetchDelay > 0 {
		select {
		case <-ctx.Done():
			return news.PageResult{}, feed.OriginRemote, ctx.Err()
		case <-time.After(m.fetchDelay):
		}
	}

	call := pageCall{category: category, page: page, pageSize: pageSize}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	fn := m.fn
	m.mu.Unlock()

	if fn == nil {
		return news.PagedResult(nil, 0, page, pageSize), feed.OriginRemote, nil
	}
	return fn(call)
}

func (m *mockPager) getCalls() []pageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]pageCall, len(m.calls))
	copy(result, m.calls)
	return result
}

func pageOf(category news.Category, n, total, page, pageSize int) news.PageResult {
	articles := make([]news.Article, n)
	for i := range articles {
		articles[i] = news.Article{ID: fmt.Sprintf("%s-%d-%d", category, page, i), Category: category}
	}
	return news.PagedResult(articles, total, page, pageSize)
}

func TestCoordinatorSyncsAllCategories(t *testing.T) {
	categories := []news.Category{"科技", "体育", "财经"}
	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		// 5 articles, no second page.
		return pageOf(c.category, 5, 5, c.page, c.pageSize), feed.OriginRemote, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, categories, DefaultSyncConfig())

	summary := coord.SyncOnce(context.Background())

	if summary.Fetched != 15 {
		t.Errorf("expected 15 articles fetched, got %d", summary.Fetched)
	}
	if summary.Failed != 0 {
		t.Errorf("expected no failures, got %d", summary.Failed)
	}

	// Order not guaranteed with parallel sync.
	expected := map[news.Category]bool{"科技": true, "体育": true, "财经": true}
	for _, call := range mock.getCalls() {
		if !expected[call.category] {
			t.Errorf("unexpected category fetched: %q", call.category)
		}
		delete(expected, call.category)
	}
	for category := range expected {
		t.Errorf("category not fetched: %q", category)
	}
}

func TestCoordinatorWalksPagesUntilLimit(t *testing.T) {
	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		// Always claim more data exists.
		return pageOf(c.category, c.pageSize, 1000, c.page, c.pageSize), feed.OriginRemote, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技"}, SyncConfig{PageSize: 20, Pages: 3})

	summary := coord.SyncOnce(context.Background())

	calls := mock.getCalls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 page fetches, got %d", len(calls))
	}
	for i, call := range calls {
		if call.page != i+1 {
			t.Errorf("call %d requested page %d, want %d", i, call.page, i+1)
		}
	}
	if summary.Fetched != 60 {
		t.Errorf("expected 60 articles fetched, got %d", summary.Fetched)
	}
	if summary.Results[0].Pages != 3 {
		t.Errorf("expected 3 pages recorded, got %d", summary.Results[0].Pages)
	}
}

func TestCoordinatorStopsAtFeedEnd(t *testing.T) {
	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		// 25 articles total: page 1 full, page 2 partial and final.
		if c.page == 1 {
			return pageOf(c.category, 20, 25, 1, c.pageSize), feed.OriginRemote, nil
		}
		return pageOf(c.category, 5, 25, 2, c.pageSize), feed.OriginRemote, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技"}, SyncConfig{PageSize: 20, Pages: 5})

	summary := coord.SyncOnce(context.Background())

	if got := len(mock.getCalls()); got != 2 {
		t.Errorf("expected 2 page fetches, got %d", got)
	}
	if summary.Fetched != 25 {
		t.Errorf("expected 25 articles fetched, got %d", summary.Fetched)
	}
}

func TestCoordinatorReportsCacheFallbackAsFailure(t *testing.T) {
	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		return news.FinalResult(nil), feed.OriginCache, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技"}, DefaultSyncConfig())

	summary := coord.SyncOnce(context.Background())

	if summary.Failed != 1 {
		t.Fatalf("expected 1 failed category, got %d", summary.Failed)
	}
	if !errors.Is(summary.Results[0].Err, ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", summary.Results[0].Err)
	}
	if got := len(mock.getCalls()); got != 1 {
		t.Errorf("expected sync to stop after the fallback, got %d calls", got)
	}
}

func TestCoordinatorFailureDoesNotAbortOthers(t *testing.T) {
	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		if c.category == "体育" {
			return news.PageResult{}, feed.OriginCache, apperr.NewPersistence("query cache", errors.New("disk I/O error"))
		}
		return pageOf(c.category, 5, 5, c.page, c.pageSize), feed.OriginRemote, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技", "体育", "财经"}, DefaultSyncConfig())

	summary := coord.SyncOnce(context.Background())

	if summary.Failed != 1 {
		t.Errorf("expected 1 failed category, got %d", summary.Failed)
	}
	if summary.Fetched != 10 {
		t.Errorf("expected the healthy categories to contribute 10 articles, got %d", summary.Fetched)
	}
}

func TestCoordinatorRespectsContextCancellation(t *testing.T) {
	categories := []news.Category{"科技", "体育", "财经"}
	mock := &mockPager{fetchDelay: 100 * time.Millisecond}
	coord := NewCoordinatorWithPager(mock, nil, categories, DefaultSyncConfig())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Summary, 1)
	go func() {
		done <- coord.SyncOnce(ctx)
	}()

	// Cancel after the fetches start
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case summary := <-done:
		if summary.Failed != len(categories) {
			t.Errorf("expected all %d categories to fail on cancel, got %d", len(categories), summary.Failed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SyncOnce did not respect context cancellation")
	}
}

func TestCoordinatorHandlesFetchTimeout(t *testing.T) {
	// Delay much longer than the context timeout.
	mock := &mockPager{fetchDelay: 5 * time.Second}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技"}, DefaultSyncConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	summary := coord.SyncOnce(ctx)

	if count := mock.fetchCount.Load(); count != 1 {
		t.Errorf("expected 1 fetch attempt, got %d", count)
	}
	if summary.Failed != 1 {
		t.Errorf("expected the timed-out category to fail, got %d failures", summary.Failed)
	}
}

func TestCoordinatorCategoriesImmutable(t *testing.T) {
	categories := []news.Category{"科技", "体育"}
	mock := &mockPager{}
	coord := NewCoordinatorWithPager(mock, nil, categories, DefaultSyncConfig())

	// Modify the original slice
	categories[0] = "modified"

	coord.SyncOnce(context.Background())

	for _, call := range mock.getCalls() {
		if call.category == "modified" {
			t.Error("coordinator used modified category")
		}
	}
}

func TestCoordinatorParallelRespectsLimit(t *testing.T) {
	// More categories than the concurrency limit (5)
	categories := make([]news.Category, 10)
	for i := range categories {
		categories[i] = news.Category(fmt.Sprintf("cat%d", i))
	}

	var current atomic.Int32
	var maxConcurrent atomic.Int32
	proceed := make(chan struct{})

	mock := &mockPager{fn: func(c pageCall) (news.PageResult, feed.Origin, error) {
		n := current.Add(1)
		for {
			old := maxConcurrent.Load()
			if n <= old || maxConcurrent.CompareAndSwap(old, n) {
				break
			}
		}
		<-proceed
		current.Add(-1)
		return news.PagedResult(nil, 0, c.page, c.pageSize), feed.OriginRemote, nil
	}}
	coord := NewCoordinatorWithPager(mock, nil, categories, DefaultSyncConfig())

	done := make(chan struct{})
	go func() {
		coord.SyncOnce(context.Background())
		close(done)
	}()

	// Wait a bit for goroutines to pile up at the limit
	time.Sleep(100 * time.Millisecond)
	close(proceed)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for SyncOnce to complete")
	}

	max := maxConcurrent.Load()
	if max > maxConcurrentSyncs {
		t.Errorf("max concurrent fetches was %d, expected at most %d", max, maxConcurrentSyncs)
	}
	if max < 2 {
		t.Errorf("max concurrent fetches was %d, expected at least 2 to prove parallelism", max)
	}
}

func TestCoordinatorStartAndWait(t *testing.T) {
	mock := &mockPager{}
	coord := NewCoordinatorWithPager(mock, nil, []news.Category{"科技"}, DefaultSyncConfig())

	ctx, cancel := context.WithCancel(context.Background())
	coord.Start(ctx)

	// Wait a bit for the initial sync
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		coord.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}

	if count := mock.fetchCount.Load(); count < 1 {
		t.Errorf("expected at least 1 fetch, got %d", count)
	}
}
