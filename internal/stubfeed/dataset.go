package stubfeed

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

var publishers = []string{"新华社", "人民日报", "澎湃新闻", "中国日报"}

// baseDay anchors generated publish times so date-range queries behave
// predictably.
var baseDay = time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)

// GenerateArticles builds perCategory articles for each category. IDs
// are fresh UUIDs; publish times step back one day per article within a
// category, newest first, starting from a fixed anchor date.
func GenerateArticles(categories []news.Category, perCategory int) []news.Article {
	articles := make([]news.Article, 0, len(categories)*perCategory)
	for _, cat := range categories {
		for i := 0; i < perCategory; i++ {
			published := baseDay.AddDate(0, 0, -i)
			articles = append(articles, news.Article{
				ID:          uuid.NewString(),
				Title:       fmt.Sprintf("%s要闻第%d期", cat, i+1),
				Content:     fmt.Sprintf("%s栏目第%d期的正文内容，用于本地联调。", cat, i+1),
				Image:       "[]",
				PublishedAt: published.Format("2006-01-02 15:04:05"),
				Category:    cat,
				Publisher:   publishers[i%len(publishers)],
				Keywords: []news.Keyword{
					{Word: cat, Score: 0.9},
					{Word: fmt.Sprintf("话题%d", i+1), Score: 0.4},
				},
			})
		}
	}
	return articles
}

// DefaultDataset generates a feed covering the stock category list.
func DefaultDataset(perCategory int) []news.Article {
	cats := []news.Category{"科技", "体育", "财经", "娱乐", "军事", "教育", "健康", "社会"}
	return GenerateArticles(cats, perCategory)
}
