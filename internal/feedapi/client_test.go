package feedapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/yx-shi/NewsClient-sub001/internal/apperr"
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

// newTestClient points a client at the test server with rate limiting off.
func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	c := New(serverURL, opts...)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	t.Cleanup(c.events.Close)
	return c
}

func fixtureResponse(n, total int) wireResponse {
	resp := wireResponse{Total: total, PageSize: n}
	for i := 0; i < n; i++ {
		resp.Data = append(resp.Data, wireArticle{
			NewsID:      "id-" + string(rune('a'+i)),
			Title:       "title",
			Content:     "content",
			Image:       "",
			PublishTime: "2025-06-01 08:30:00",
			Category:    "科技",
			Publisher:   "新华网",
			Keywords:    []wireKeyword{{Word: "k", Score: 0.9}},
		})
	}
	return resp
}

func TestListPageRequestShape(t *testing.T) {
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/news/queryNewsList" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		json.NewEncoder(w).Encode(fixtureResponse(2, 30))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.ListPage(context.Background(), ListParams{Page: 1, PageSize: 10, Category: "科技"})
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}

	// Absent filters travel as empty strings, not omitted parameters.
	want := map[string]string{
		"page": "1", "size": "10",
		"startDate": "", "endDate": "",
		"words": "", "categories": "科技",
	}
	for k, v := range want {
		got, ok := gotQuery[k]
		if !ok {
			t.Errorf("parameter %q missing from request", k)
			continue
		}
		if got != v {
			t.Errorf("parameter %q = %q, want %q", k, got, v)
		}
	}

	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(result.Articles))
	}
	if result.TotalCount != 30 {
		t.Errorf("TotalCount = %d, want 30", result.TotalCount)
	}
	if !result.HasMore {
		t.Error("page 1 of 30 with size 10 should have more")
	}
}

func TestListPageHasMoreBoundary(t *testing.T) {
	testCases := []struct {
		name  string
		page  int
		total int
		want  bool
	}{
		{"mid pagination", 2, 45, true},
		{"last partial page", 5, 45, false},
		{"exact multiple", 4, 40, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(fixtureResponse(5, tc.total))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			result, err := c.ListPage(context.Background(), ListParams{Page: tc.page, PageSize: 10})
			if err != nil {
				t.Fatalf("ListPage() error = %v", err)
			}
			if result.HasMore != tc.want {
				t.Errorf("HasMore = %v, want %v", result.HasMore, tc.want)
			}
		})
	}
}

func TestSearchSingleBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "1" {
			t.Errorf("search should always request page 1, got %s", q.Get("page"))
		}
		if q.Get("size") != "100" {
			t.Errorf("search should request the batch size, got %s", q.Get("size"))
		}
		if q.Get("words") != "economy" {
			t.Errorf("words = %q, want economy", q.Get("words"))
		}
		json.NewEncoder(w).Encode(fixtureResponse(3, 120))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.Search(context.Background(), "economy", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// Batch semantics: more exists only because the server holds 120 > 3.
	if !result.HasMore {
		t.Error("truncated batch should report HasMore")
	}
	if result.TotalCount != 120 {
		t.Errorf("TotalCount = %d, want 120", result.TotalCount)
	}
}

func TestSearchCompleteBatchHasNoMore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fixtureResponse(4, 4))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.Search(context.Background(), "economy", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.HasMore {
		t.Error("complete batch should not report HasMore")
	}
}

func TestSearchByDateSendsRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startDate") != "2024-02-01" || q.Get("endDate") != "2024-02-29" {
			t.Errorf("unexpected range: %s..%s", q.Get("startDate"), q.Get("endDate"))
		}
		if q.Get("words") != "" {
			t.Errorf("date-only search should send empty words, got %q", q.Get("words"))
		}
		json.NewEncoder(w).Encode(fixtureResponse(1, 1))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	r := news.DateRange{Start: "2024-02-01", End: "2024-02-29"}
	if _, err := c.SearchByDate(context.Background(), r, ""); err != nil {
		t.Fatalf("SearchByDate() error = %v", err)
	}
}

func TestSearchCombinedSendsBothFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("words") != "election" {
			t.Errorf("words = %q, want election", q.Get("words"))
		}
		if q.Get("startDate") != "2025-01-01" || q.Get("endDate") != "2025-01-31" {
			t.Errorf("unexpected range: %s..%s", q.Get("startDate"), q.Get("endDate"))
		}
		if q.Get("categories") != "政治" {
			t.Errorf("categories = %q, want 政治", q.Get("categories"))
		}
		json.NewEncoder(w).Encode(fixtureResponse(1, 1))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	r := news.DateRange{Start: "2025-01-01", End: "2025-01-31"}
	if _, err := c.SearchCombined(context.Background(), "election", r, "政治"); err != nil {
		t.Fatalf("SearchCombined() error = %v", err)
	}
}

func TestProtocolErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ListPage(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}

	var pe *apperr.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %T: %v", err, err)
	}
	if pe.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", pe.StatusCode)
	}
	if !strings.Contains(pe.Body, "upstream exploded") {
		t.Errorf("Body should carry the server payload, got %q", pe.Body)
	}
}

func TestConnectivityErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	c := newTestClient(t, server.URL)
	_, err := c.ListPage(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err == nil {
		t.Fatal("expected error for refused connection")
	}
	if !apperr.IsConnectivity(err) {
		t.Errorf("expected ConnectivityError, got %v", err)
	}
}

func TestMalformedBodyIsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ListPage(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err == nil {
		t.Fatal("expected error for unparseable body")
	}
	if !apperr.IsProtocol(err) {
		t.Errorf("expected ProtocolError, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(fixtureResponse(1, 1))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListPage(ctx, ListParams{Page: 1, PageSize: 10})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !apperr.IsConnectivity(err) {
		t.Errorf("cancellation should classify as connectivity, got %v", err)
	}
}

func TestImageFieldPassesThroughRaw(t *testing.T) {
	pseudoArray := "[http://img.example/a.png, http://img.example/b.png]"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := fixtureResponse(1, 1)
		resp.Data[0].Image = pseudoArray
		resp.Data[0].Video = "http://video.example/v.mp4"
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	result, err := c.ListPage(context.Background(), ListParams{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ListPage() error = %v", err)
	}

	a := result.Articles[0]
	if a.Image != pseudoArray {
		t.Errorf("Image = %q, want raw passthrough %q", a.Image, pseudoArray)
	}
	if a.VideoURL != "http://video.example/v.mp4" {
		t.Errorf("VideoURL = %q", a.VideoURL)
	}
	if a.PublishedAt != "2025-06-01 08:30:00" {
		t.Errorf("PublishedAt should stay a raw string, got %q", a.PublishedAt)
	}
	if len(a.Keywords) != 1 || a.Keywords[0].Word != "k" {
		t.Errorf("Keywords not converted: %+v", a.Keywords)
	}
}
