// Package userstate persists per-user preferences: the ordered category
// selection and the set of read article IDs.
//
// Read IDs follow a monotonic-set discipline. The store holds whole
// snapshots; the list controller loads once at startup, unions in memory,
// and writes the full set back on each mutation. SetReadIDs therefore
// replaces rather than merges, and the caller guarantees the new set is a
// superset of the old one.
package userstate

import (
	"database/sql"
	"time"

	"github.com/yx-shi/NewsClient-sub001/internal/apperr"
	"github.com/yx-shi/NewsClient-sub001/internal/news"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Store persists user preferences in its own SQLite file, separate from
// the article cache so clearing one never touches the other.
type Store struct {
	db *sql.DB
}

// NewStore creates a SQLite user-state store at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.NewPersistence("failed to open state database", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperr.NewPersistence("failed to enable WAL mode", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, apperr.NewPersistence("failed to migrate state database", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS selected_categories (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS read_articles (
		article_id TEXT PRIMARY KEY,
		marked_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SelectedCategories returns the user's category list in selection order.
func (s *Store) SelectedCategories() ([]news.Category, error) {
	rows, err := s.db.Query("SELECT name FROM selected_categories ORDER BY position ASC")
	if err != nil {
		return nil, apperr.NewPersistence("failed to query categories", err)
	}
	defer rows.Close()

	var categories []news.Category
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperr.NewPersistence("failed to scan category", err)
		}
		categories = append(categories, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.NewPersistence("failed to iterate categories", err)
	}
	return categories, nil
}

// SetSelectedCategories replaces the whole selection in one transaction,
// preserving the given order. Duplicates keep their first position.
func (s *Store) SetSelectedCategories(categories []news.Category) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.NewPersistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM selected_categories"); err != nil {
		return apperr.NewPersistence("failed to clear categories", err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO selected_categories (position, name) VALUES (?, ?)")
	if err != nil {
		return apperr.NewPersistence("failed to prepare category insert", err)
	}
	defer stmt.Close()

	for i, name := range categories {
		if name == "" {
			continue
		}
		if _, err := stmt.Exec(i, name); err != nil {
			return apperr.NewPersistence("failed to insert category", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewPersistence("failed to commit categories", err)
	}
	return nil
}

// ReadIDs returns the set of read article IDs.
func (s *Store) ReadIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT article_id FROM read_articles")
	if err != nil {
		return nil, apperr.NewPersistence("failed to query read articles", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.NewPersistence("failed to scan read article", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.NewPersistence("failed to iterate read articles", err)
	}
	return ids, nil
}

// SetReadIDs replaces the read set in one transaction.
func (s *Store) SetReadIDs(ids map[string]struct{}) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.NewPersistence("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM read_articles"); err != nil {
		return apperr.NewPersistence("failed to clear read articles", err)
	}

	stmt, err := tx.Prepare("INSERT INTO read_articles (article_id, marked_at) VALUES (?, ?)")
	if err != nil {
		return apperr.NewPersistence("failed to prepare read insert", err)
	}
	defer stmt.Close()

	now := time.Now()
	for id := range ids {
		if id == "" {
			continue
		}
		if _, err := stmt.Exec(id, now); err != nil {
			return apperr.NewPersistence("failed to insert read article", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewPersistence("failed to commit read articles", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
