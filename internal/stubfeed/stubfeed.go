// Package stubfeed is an in-process stand-in for the remote news feed.
//
// It serves the same listing endpoint the real feed exposes, backed by an
// in-memory article set, so the client stack can be developed and tested
// without network access. Tests can flip the server into a failing mode
// to exercise degraded paths.
package stubfeed

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

const listPath = "/news/queryNewsList"

// feedResponse is the listing endpoint's envelope.
type feedResponse struct {
	Data     []feedArticle `json:"data"`
	Total    int           `json:"total"`
	PageSize int           `json:"pageSize"`
}

type feedArticle struct {
	NewsID      string        `json:"newsID"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Image       string        `json:"image"`
	PublishTime string        `json:"publishTime"`
	Video       string        `json:"video"`
	Category    string        `json:"category"`
	Publisher   string        `json:"publisher"`
	Keywords    []feedKeyword `json:"keywords"`
}

type feedKeyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Server serves the stub feed over HTTP.
type Server struct {
	e *echo.Echo

	mu       sync.RWMutex
	articles []news.Article

	failing atomic.Bool
}

// New creates a stub feed serving the given articles.
func New(articles []news.Article) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{e: e}
	s.SetArticles(articles)

	e.GET(listPath, s.queryNewsList)
	return s
}

// Handler exposes the server for mounting in tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.e.Close()
}

// SetArticles replaces the article set.
func (s *Server) SetArticles(articles []news.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = make([]news.Article, len(articles))
	copy(s.articles, articles)
}

// SetFailing switches the server between healthy and failing. While
// failing, every request is answered with 503.
func (s *Server) SetFailing(failing bool) {
	s.failing.Store(failing)
}

func (s *Server) queryNewsList(c echo.Context) error {
	if s.failing.Load() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	}

	page := intParam(c, "page", 1)
	size := intParam(c, "size", 10)
	startDate := c.QueryParam("startDate")
	endDate := c.QueryParam("endDate")
	words := c.QueryParam("words")
	categories := c.QueryParam("categories")

	filtered := s.filter(startDate, endDate, words, categories)
	total := len(filtered)

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	data := make([]feedArticle, 0, end-start)
	for _, a := range filtered[start:end] {
		data = append(data, toFeedArticle(a))
	}
	return c.JSON(http.StatusOK, feedResponse{Data: data, Total: total, PageSize: size})
}

// filter applies the query filters and returns matches newest first.
func (s *Server) filter(startDate, endDate, words, categories string) []news.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var wanted map[string]struct{}
	if categories != "" {
		wanted = make(map[string]struct{})
		for _, cat := range strings.Split(categories, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				wanted[cat] = struct{}{}
			}
		}
	}
	needle := strings.ToLower(words)

	var out []news.Article
	for _, a := range s.articles {
		if wanted != nil {
			if _, ok := wanted[a.Category]; !ok {
				continue
			}
		}
		if needle != "" && !matchesWords(a, needle) {
			continue
		}
		if !inDateRange(a.PublishedAt, startDate, endDate) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt > out[j].PublishedAt
	})
	return out
}

func matchesWords(a news.Article, needle string) bool {
	return strings.Contains(strings.ToLower(a.Title), needle) ||
		strings.Contains(strings.ToLower(a.Content), needle)
}

// inDateRange compares the date part of publishTime against the bounds,
// both ends inclusive. Dates are ISO formatted so string order is date
// order.
func inDateRange(publishedAt, startDate, endDate string) bool {
	if startDate == "" && endDate == "" {
		return true
	}
	if len(publishedAt) < 10 {
		return false
	}
	day := publishedAt[:10]
	if startDate != "" && day < startDate {
		return false
	}
	if endDate != "" && day > endDate {
		return false
	}
	return true
}

func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func toFeedArticle(a news.Article) feedArticle {
	var keywords []feedKeyword
	for _, k := range a.Keywords {
		keywords = append(keywords, feedKeyword{Word: k.Word, Score: k.Score})
	}
	return feedArticle{
		NewsID:      a.ID,
		Title:       a.Title,
		Content:     a.Content,
		Image:       a.Image,
		PublishTime: a.PublishedAt,
		Video:       a.VideoURL,
		Category:    a.Category,
		Publisher:   a.Publisher,
		Keywords:    keywords,
	}
}
