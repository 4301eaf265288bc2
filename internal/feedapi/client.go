// Package feedapi implements the remote news feed client.
//
// The feed exposes a single listing endpoint that serves both browsing and
// search. Paged browsing asks for page-relative increments; the search
// operations request one large batch and report truncation through the
// total count. Absent filters are sent as empty-string parameters, never
// omitted, which is what the upstream service expects.
//
// Failures map onto the apperr taxonomy: transport errors become
// ConnectivityError, non-2xx responses become ProtocolError, and a 2xx
// body that does not decode is treated as a protocol failure too, since
// from the caller's point of view the server answered garbage.
package feedapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yx-shi/NewsClient-sub001/internal/apperr"
	"github.com/yx-shi/NewsClient-sub001/internal/eventlog"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

const (
	listPath = "/news/queryNewsList"

	// defaultSearchBatch is the single-batch size for search requests.
	defaultSearchBatch = 100

	// maxBodySize caps response reads.
	maxBodySize = 10 << 20
)

// Client talks to the remote feed API.
type Client struct {
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	searchBatch int
	events      *eventlog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithRatePerSecond overrides the request rate limit.
func WithRatePerSecond(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithSearchBatch overrides the single-batch size used by the search
// operations.
func WithSearchBatch(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.searchBatch = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithEventLogger attaches an event logger for fetch instrumentation.
func WithEventLogger(l *eventlog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.events = l
		}
	}
}

// New creates a feed client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(200*time.Millisecond), 1), // 5 req/s
		searchBatch: defaultSearchBatch,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = eventlog.NewNullLogger()
	}
	return c
}

// ListParams are the filters for one page request. Zero-value strings mean
// "no filter" and are still sent on the wire as empty parameters.
type ListParams struct {
	Page      int
	PageSize  int
	StartDate string
	EndDate   string
	Keyword   string
	Category  string
}

// ListPage fetches one page of the feed.
// HasMore is page-relative: more data exists while page*pageSize has not
// covered the server's total.
func (c *Client) ListPage(ctx context.Context, p ListParams) (news.PageResult, error) {
	resp, err := c.query(ctx, p)
	if err != nil {
		return news.PageResult{}, err
	}
	return news.PagedResult(toArticles(resp.Data), resp.Total, p.Page, p.PageSize), nil
}

// Search fetches a single batch of keyword matches.
func (c *Client) Search(ctx context.Context, keyword, category string) (news.PageResult, error) {
	return c.searchBatchQuery(ctx, ListParams{Keyword: keyword, Category: category})
}

// SearchByDate fetches a single batch of articles published inside r.
func (c *Client) SearchByDate(ctx context.Context, r news.DateRange, category string) (news.PageResult, error) {
	return c.searchBatchQuery(ctx, ListParams{StartDate: r.Start, EndDate: r.End, Category: category})
}

// SearchCombined fetches a single batch matching both keyword and range.
func (c *Client) SearchCombined(ctx context.Context, keyword string, r news.DateRange, category string) (news.PageResult, error) {
	return c.searchBatchQuery(ctx, ListParams{Keyword: keyword, StartDate: r.Start, EndDate: r.End, Category: category})
}

// searchBatchQuery runs a search-shaped request: one batch, no cursor.
// HasMore reports whether the server truncated the batch.
func (c *Client) searchBatchQuery(ctx context.Context, p ListParams) (news.PageResult, error) {
	p.Page = 1
	p.PageSize = c.searchBatch
	resp, err := c.query(ctx, p)
	if err != nil {
		return news.PageResult{}, err
	}
	return news.BatchResult(toArticles(resp.Data), resp.Total), nil
}

// query performs one GET against the listing endpoint.
func (c *Client) query(ctx context.Context, p ListParams) (*wireResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feedapi: rate limiter wait failed: %w", err)
	}

	qid := uuid.NewString()
	start := time.Now()

	params := url.Values{}
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("size", strconv.Itoa(p.PageSize))
	params.Set("startDate", p.StartDate)
	params.Set("endDate", p.EndDate)
	params.Set("words", p.Keyword)
	params.Set("categories", p.Category)

	reqURL := c.baseURL + listPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feedapi: failed to create request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		c.emitError(qid, p, err)
		if ctx.Err() != nil {
			return nil, apperr.NewConnectivity("feed query", ctx.Err())
		}
		return nil, apperr.NewConnectivity("feed query", err)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	httpResp.Body.Close()
	if err != nil {
		c.emitError(qid, p, err)
		return nil, apperr.NewConnectivity("feed query", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		perr := apperr.NewProtocol(httpResp.StatusCode, truncate(string(body), 200))
		c.emitError(qid, p, perr)
		return nil, perr
	}

	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		perr := apperr.NewProtocol(httpResp.StatusCode, "unparseable response body")
		c.emitError(qid, p, perr)
		return nil, perr
	}

	dur := time.Since(start)
	logging.Debug("feed query completed",
		"qid", qid,
		"page", p.Page,
		"size", p.PageSize,
		"category", p.Category,
		"words", p.Keyword,
		"count", len(resp.Data),
		"total", resp.Total,
		"dur", dur)
	c.events.Emit(eventlog.Event{
		Kind:     eventlog.KindFetchPage,
		Level:    eventlog.LevelDebug,
		Comp:     "feedapi",
		QueryID:  qid,
		Dur:      dur,
		Count:    len(resp.Data),
		Page:     p.Page,
		Category: p.Category,
		Query:    p.Keyword,
	})
	return &resp, nil
}

func (c *Client) emitError(qid string, p ListParams, err error) {
	logging.Warn("feed query failed", "qid", qid, "page", p.Page, "category", p.Category, "error", err)
	c.events.Emit(eventlog.Event{
		Kind:     eventlog.KindFetchError,
		Level:    eventlog.LevelWarn,
		Comp:     "feedapi",
		QueryID:  qid,
		Page:     p.Page,
		Category: p.Category,
		Query:    p.Keyword,
		Err:      err.Error(),
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
