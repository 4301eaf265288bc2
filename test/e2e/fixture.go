package e2e

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/cache"
	"github.com/yx-shi/NewsClient-sub001/internal/controller"
	"github.com/yx-shi/NewsClient-sub001/internal/feed"
	"github.com/yx-shi/NewsClient-sub001/internal/feedapi"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
	"github.com/yx-shi/NewsClient-sub001/internal/stubfeed"
	"github.com/yx-shi/NewsClient-sub001/internal/userstate"
)

// stack is a fully wired client: real HTTP client against the stub
// feed, real SQLite stores in a temp dir, real repository on top.
type stack struct {
	stub  *stubfeed.Server
	url   string
	cache *cache.Store
	state *userstate.Store
	repo  *feed.Repository
}

// newStack starts a stub feed with the given articles and wires the
// whole data-access stack against it. Everything is torn down with the
// test.
func newStack(t *testing.T, articles []news.Article) *stack {
	t.Helper()

	stub := stubfeed.New(articles)
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cacheStore, err := cache.NewStore(filepath.Join(dir, "articles.db"))
	if err != nil {
		t.Fatalf("failed to open cache store: %v", err)
	}
	t.Cleanup(func() { cacheStore.Close() })

	stateStore, err := userstate.NewStore(filepath.Join(dir, "userstate.db"))
	if err != nil {
		t.Fatalf("failed to open state store: %v", err)
	}
	t.Cleanup(func() { stateStore.Close() })

	client := feedapi.New(srv.URL,
		feedapi.WithTimeout(5*time.Second),
		feedapi.WithRatePerSecond(1000), // Tests should not sit in the limiter
	)

	return &stack{
		stub:  stub,
		url:   srv.URL,
		cache: cacheStore,
		state: stateStore,
		repo:  feed.NewRepository(client, cacheStore, nil),
	}
}

// saveCategories seeds the persisted category selection.
func (s *stack) saveCategories(t *testing.T, cats ...news.Category) {
	t.Helper()
	if err := s.state.SetSelectedCategories(cats); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}
}

// waitFor pulls events until one of the wanted types arrives. Other
// events are discarded. Fails the test after two seconds.
func waitFor(t *testing.T, events <-chan controller.Event, wanted ...controller.EventType) controller.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			for _, w := range wanted {
				if ev.Type == w {
					return ev
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", wanted)
			return controller.Event{}
		}
	}
}
