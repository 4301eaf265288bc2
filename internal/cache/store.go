// Package cache provides the local article store.
//
// The cache is the offline half of the feed: every successful remote fetch
// is upserted here, and the repository serves from here when the network
// is down. Rows also carry the bookmark flag, which survives refetches:
// the upsert refreshes every content column but never touches bookmarked.
//
// # Thread Safety
//
// Store is safe for concurrent use. The underlying sql.DB handles
// connection pooling and serialization. Individual operations are atomic;
// read-modify-write sequences require external coordination, which in
// practice is the repository funneling all writes.
package cache

import (
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/yx-shi/NewsClient-sub001/internal/apperr"
	"github.com/yx-shi/NewsClient-sub001/internal/logging"
	"github.com/yx-shi/NewsClient-sub001/internal/news"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// articleColumns are the SELECT columns for article queries, in scan order.
var articleColumns = []string{
	"id", "title", "content", "video_url", "image",
	"published_at", "category", "publisher", "keywords",
}

// Store persists fetched articles.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite article store at the given path.
//
// The database is created if it doesn't exist, and migrations are applied
// automatically.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.NewPersistence("failed to open cache database", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperr.NewPersistence("failed to enable WAL mode", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, apperr.NewPersistence("failed to migrate cache database", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		published_at TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		publisher TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '',
		bookmarked INTEGER NOT NULL DEFAULT 0,
		viewed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_viewed ON articles(viewed_at DESC);
	CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
	CREATE INDEX IF NOT EXISTS idx_articles_bookmarked ON articles(bookmarked);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert saves or refreshes articles in a single transaction.
//
// The conflict clause updates every content column but not bookmarked:
// a refetch must never clear a favorite. Individual article failures are
// logged and skipped; the rest of the batch still commits.
func (s *Store) Upsert(articles []news.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperr.NewPersistence("failed to begin transaction", err)
	}
	// Rollback is safe to call even after commit - it's a no-op
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (id, title, content, video_url, image, published_at, category, publisher, keywords, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			video_url = excluded.video_url,
			image = excluded.image,
			published_at = excluded.published_at,
			category = excluded.category,
			publisher = excluded.publisher,
			keywords = excluded.keywords,
			viewed_at = excluded.viewed_at
	`)
	if err != nil {
		return apperr.NewPersistence("failed to prepare upsert", err)
	}
	defer stmt.Close()

	now := time.Now()
	var failed int
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if _, err := stmt.Exec(
			a.ID,
			a.Title,
			a.Content,
			a.VideoURL,
			a.Image,
			a.PublishedAt,
			a.Category,
			a.Publisher,
			encodeKeywords(a.Keywords),
			now,
		); err != nil {
			logging.Debug("failed to upsert article", "id", a.ID, "error", err)
			failed++
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewPersistence("failed to commit upsert", err)
	}
	if failed > 0 {
		logging.Warn("some articles failed to upsert", "failed", failed, "total", len(articles))
	}
	return nil
}

// QueryByCategoryAndKeyword retrieves cached articles matching the given
// filters. Either filter may be empty, meaning unfiltered. The keyword
// matches title or body. Results are ordered most recently viewed first.
func (s *Store) QueryByCategoryAndKeyword(category, keyword string) ([]news.Article, error) {
	q := sq.Select(articleColumns...).From("articles")
	if category != "" {
		q = q.Where(sq.Eq{"category": category})
	}
	if keyword != "" {
		pattern := "%" + keyword + "%"
		q = q.Where(sq.Or{sq.Like{"title": pattern}, sq.Like{"content": pattern}})
	}
	q = q.OrderBy("viewed_at DESC", "id ASC")

	return s.queryArticles(q, "failed to query articles")
}

// QueryBookmarked retrieves all bookmarked articles, most recent first.
func (s *Store) QueryBookmarked() ([]news.Article, error) {
	q := sq.Select(articleColumns...).From("articles").
		Where(sq.Eq{"bookmarked": 1}).
		OrderBy("viewed_at DESC", "id ASC")

	return s.queryArticles(q, "failed to query bookmarked articles")
}

// QueryRecent retrieves one page of articles by recency.
func (s *Store) QueryRecent(limit, offset int) ([]news.Article, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	q := sq.Select(articleColumns...).From("articles").
		OrderBy("viewed_at DESC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	return s.queryArticles(q, "failed to query recent articles")
}

func (s *Store) queryArticles(q sq.SelectBuilder, op string) ([]news.Article, error) {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, apperr.NewPersistence(op, err)
	}

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, apperr.NewPersistence(op, err)
	}
	defer rows.Close()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, apperr.NewPersistence(op, err)
	}
	return articles, nil
}

// GetByID retrieves a single article. A miss is (nil, nil), not an error.
func (s *Store) GetByID(id string) (*news.Article, error) {
	sqlStr, args, err := sq.Select(articleColumns...).From("articles").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperr.NewPersistence("failed to get article", err)
	}

	var a news.Article
	var keywords string
	row := s.db.QueryRow(sqlStr, args...)
	err = row.Scan(&a.ID, &a.Title, &a.Content, &a.VideoURL, &a.Image,
		&a.PublishedAt, &a.Category, &a.Publisher, &keywords)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewPersistence("failed to get article", err)
	}
	a.Keywords = decodeKeywords(keywords)
	return &a, nil
}

// SetBookmark sets the bookmark flag and returns the stored value.
// An unknown ID is a no-op reported as false.
func (s *Store) SetBookmark(id string, bookmarked bool) (bool, error) {
	val := 0
	if bookmarked {
		val = 1
	}
	result, err := s.db.Exec("UPDATE articles SET bookmarked = ? WHERE id = ?", val, id)
	if err != nil {
		return false, apperr.NewPersistence("failed to set bookmark", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}
	return bookmarked, nil
}

// IsBookmarked reports the bookmark flag for an article. A miss is false.
func (s *Store) IsBookmarked(id string) (bool, error) {
	var val int
	err := s.db.QueryRow("SELECT bookmarked FROM articles WHERE id = ?", id).Scan(&val)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperr.NewPersistence("failed to read bookmark", err)
	}
	return val != 0, nil
}

// DeleteUnbookmarked clears browsing history. Bookmarked rows are exempt.
// Returns the number of rows deleted.
func (s *Store) DeleteUnbookmarked() (int64, error) {
	result, err := s.db.Exec("DELETE FROM articles WHERE bookmarked = 0")
	if err != nil {
		return 0, apperr.NewPersistence("failed to clear history", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.NewPersistence("failed to clear history", err)
	}
	return rows, nil
}

// ArticleCount returns the total cached article count.
func (s *Store) ArticleCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, apperr.NewPersistence("failed to count articles", err)
	}
	return count, nil
}

// BookmarkedCount returns the bookmarked article count.
func (s *Store) BookmarkedCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM articles WHERE bookmarked = 1").Scan(&count)
	if err != nil {
		return 0, apperr.NewPersistence("failed to count bookmarked articles", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// scanArticles scans rows into articles, handling the common scanning logic.
func scanArticles(rows *sql.Rows) ([]news.Article, error) {
	var articles []news.Article
	for rows.Next() {
		var a news.Article
		var keywords string
		err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.VideoURL, &a.Image,
			&a.PublishedAt, &a.Category, &a.Publisher, &keywords)
		if err != nil {
			return nil, err
		}
		a.Keywords = decodeKeywords(keywords)
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return articles, nil
}

// encodeKeywords serializes the ranked keyword list into the keywords
// column. Empty lists are stored as the empty string.
func encodeKeywords(keywords []news.Keyword) string {
	if len(keywords) == 0 {
		return ""
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeKeywords(s string) []news.Keyword {
	if s == "" {
		return nil
	}
	var keywords []news.Keyword
	if err := json.Unmarshal([]byte(s), &keywords); err != nil {
		logging.Debug("failed to decode cached keywords", "error", err)
		return nil
	}
	return keywords
}
