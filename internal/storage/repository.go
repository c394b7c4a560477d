// Package storage keeps a sqlite snapshot of the last listing of every
// category so the UI has something to show before the first fetch returns.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/reuteras/rwreader/internal/article"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS articles (
  category TEXT NOT NULL,
  id TEXT NOT NULL,
  position INTEGER NOT NULL,
  title TEXT NOT NULL,
  url TEXT NOT NULL DEFAULT '',
  source_url TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  site_name TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  word_count INTEGER NOT NULL DEFAULT 0,
  reading_progress INTEGER NOT NULL DEFAULT 0,
  archived INTEGER NOT NULL DEFAULT 0,
  saved_for_later INTEGER NOT NULL DEFAULT 0,
  in_feed INTEGER NOT NULL DEFAULT 0,
  read INTEGER NOT NULL DEFAULT 0,
  state TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL DEFAULT '',
  published_date TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (category, id)
);
CREATE INDEX IF NOT EXISTS idx_articles_position ON articles(category, position);

CREATE TABLE IF NOT EXISTS snapshots (
  category TEXT PRIMARY KEY,
  saved_at TEXT NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveCategory replaces the snapshot of c with articles, keeping their
// order.
func (r *Repository) SaveCategory(ctx context.Context, c article.Category, articles []article.Article) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE category = ?`, string(c)); err != nil {
		return fmt.Errorf("clear category %s: %w", c, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO articles (
  category, id, position, title, url, source_url, author, site_name, summary,
  word_count, reading_progress, archived, saved_for_later, in_feed, read, state,
  created_at, updated_at, published_date
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(category, id) DO UPDATE SET
  position=excluded.position,
  title=excluded.title,
  url=excluded.url,
  source_url=excluded.source_url,
  author=excluded.author,
  site_name=excluded.site_name,
  summary=excluded.summary,
  word_count=excluded.word_count,
  reading_progress=excluded.reading_progress,
  archived=excluded.archived,
  saved_for_later=excluded.saved_for_later,
  in_feed=excluded.in_feed,
  read=excluded.read,
  state=excluded.state,
  created_at=excluded.created_at,
  updated_at=excluded.updated_at,
  published_date=excluded.published_date
`)
	if err != nil {
		return fmt.Errorf("prepare save statement: %w", err)
	}
	defer stmt.Close()

	for i, a := range articles {
		_, err := stmt.ExecContext(
			ctx,
			string(c),
			a.ID,
			i,
			a.Title,
			a.URL,
			a.SourceURL,
			a.Author,
			a.SiteName,
			a.Summary,
			a.WordCount,
			a.ReadingProgress,
			a.Archived,
			a.SavedForLater,
			a.InFeed,
			a.Read,
			a.State,
			formatTime(a.CreatedAt),
			formatTime(a.UpdatedAt),
			formatTime(a.PublishedDate),
		)
		if err != nil {
			return fmt.Errorf("save article %s: %w", a.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO snapshots (category, saved_at) VALUES (?, ?)
ON CONFLICT(category) DO UPDATE SET saved_at=excluded.saved_at
`, string(c), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("record snapshot time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListCategory returns the snapshot of c in listing order. A limit below 1
// returns every row.
func (r *Repository) ListCategory(ctx context.Context, c article.Category, limit int) ([]article.Article, error) {
	if limit < 1 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, url, source_url, author, site_name, summary, word_count,
  reading_progress, archived, saved_for_later, in_feed, read, state,
  created_at, updated_at, published_date
FROM articles
WHERE category = ?
ORDER BY position ASC
LIMIT ?
`, string(c), limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := make([]article.Article, 0, 32)
	for rows.Next() {
		var a article.Article
		var createdAt, updatedAt, publishedDate string
		if err := rows.Scan(
			&a.ID,
			&a.Title,
			&a.URL,
			&a.SourceURL,
			&a.Author,
			&a.SiteName,
			&a.Summary,
			&a.WordCount,
			&a.ReadingProgress,
			&a.Archived,
			&a.SavedForLater,
			&a.InFeed,
			&a.Read,
			&a.State,
			&createdAt,
			&updatedAt,
			&publishedDate,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse article created_at %q: %w", createdAt, err)
		}
		if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse article updated_at %q: %w", updatedAt, err)
		}
		if a.PublishedDate, err = parseTime(publishedDate); err != nil {
			return nil, fmt.Errorf("parse article published_date %q: %w", publishedDate, err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// SavedAt reports when c was last saved. ok is false when there is no
// snapshot for c.
func (r *Repository) SavedAt(ctx context.Context, c article.Category) (t time.Time, ok bool, err error) {
	var raw string
	err = r.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshots WHERE category = ?`, string(c)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query snapshot time: %w", err)
	}
	t, err = parseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse snapshot time %q: %w", raw, err)
	}
	return t, true, nil
}

// RemoveArticle drops id from every category snapshot.
func (r *Repository) RemoveArticle(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove article %s: %w", id, err)
	}
	return nil
}

// Clear drops every snapshot.
func (r *Repository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM articles; DELETE FROM snapshots;`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
