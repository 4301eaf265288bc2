package news

// PageResult is the uniform shape every fetch and search produces.
//
// HasMore is computed differently depending on how the articles were
// obtained, which is why construction goes through PagedResult and
// BatchResult rather than struct literals: a paged feed reports more data
// relative to the requested page, a search returns one batch and reports
// whether the server truncated it.
type PageResult struct {
	Articles   []Article
	TotalCount int
	HasMore    bool
}

// PagedResult builds the result of a page-relative fetch.
// More data exists while page*pageSize has not covered the total.
func PagedResult(articles []Article, total, page, pageSize int) PageResult {
	return PageResult{
		Articles:   articles,
		TotalCount: total,
		HasMore:    page*pageSize < total,
	}
}

// BatchResult builds the result of a single-batch search. There is no page
// cursor; more data exists only if the server holds more rows than it sent.
func BatchResult(articles []Article, total int) PageResult {
	return PageResult{
		Articles:   articles,
		TotalCount: total,
		HasMore:    total > len(articles),
	}
}

// FinalResult builds a result that is complete by definition, used when
// serving from the local cache. Cache output is one final page: the total
// is whatever was found and no further pages are ever claimed.
func FinalResult(articles []Article) PageResult {
	return PageResult{
		Articles:   articles,
		TotalCount: len(articles),
		HasMore:    false,
	}
}
