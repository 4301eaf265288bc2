package feedapi

import "github.com/yx-shi/NewsClient-sub001/internal/news"

// wireResponse is the listing endpoint's envelope.
type wireResponse struct {
	Data     []wireArticle `json:"data"`
	Total    int           `json:"total"`
	PageSize int           `json:"pageSize"`
}

// wireArticle mirrors the feed's article JSON. Image and publishTime are
// carried as raw strings; the image field in particular may hold a
// bracketed pseudo-array and must survive unmodified.
type wireArticle struct {
	NewsID      string        `json:"newsID"`
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	Image       string        `json:"image"`
	PublishTime string        `json:"publishTime"`
	Video       string        `json:"video"`
	Category    string        `json:"category"`
	Publisher   string        `json:"publisher"`
	Keywords    []wireKeyword `json:"keywords"`
}

type wireKeyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

func toArticle(w wireArticle) news.Article {
	var keywords []news.Keyword
	if len(w.Keywords) > 0 {
		keywords = make([]news.Keyword, len(w.Keywords))
		for i, k := range w.Keywords {
			keywords[i] = news.Keyword{Word: k.Word, Score: k.Score}
		}
	}

	return news.Article{
		ID:          w.NewsID,
		Title:       w.Title,
		Content:     w.Content,
		VideoURL:    w.Video,
		Image:       w.Image,
		PublishedAt: w.PublishTime,
		Category:    w.Category,
		Publisher:   w.Publisher,
		Keywords:    keywords,
	}
}

func toArticles(ws []wireArticle) []news.Article {
	articles := make([]news.Article, len(ws))
	for i, w := range ws {
		articles[i] = toArticle(w)
	}
	return articles
}
