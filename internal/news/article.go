// Package news defines the domain types shared by the feed client, the
// local cache, and the list controllers.
//
// Article is the unit of exchange. Its ID is the join key for the cache and
// for read-state tracking; everything else is payload the core passes
// through. PublishedAt and Image stay raw strings on purpose: parsing
// timestamps and unpacking the image pseudo-array are presentation
// concerns, and the core must hand both through unmodified.
package news

// Article is a single news item as served by the remote feed.
type Article struct {
	// ID is the stable identity for an article. It joins cache rows and
	// read-state entries and drives list de-duplication.
	ID string

	Title   string
	Content string

	// VideoURL is empty for text-only articles.
	VideoURL string

	// Image holds either one URL or a bracketed pseudo-array of URLs,
	// exactly as the feed sent it.
	Image string

	// PublishedAt is an ISO-like timestamp string, never parsed here.
	PublishedAt string

	Category  string
	Publisher string

	// Keywords are ranked by the feed, most relevant first.
	Keywords []Keyword
}

// Keyword is a ranked search term attached to an article.
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Category is a feed category name. The remote API treats it as a plain
// string; an ordered user selection is a []Category.
type Category = string
