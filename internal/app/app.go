package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/reuteras/rwreader/internal/article"
	"github.com/reuteras/rwreader/internal/library"
	articlefmt "github.com/reuteras/rwreader/internal/render/article"
)

var (
	ErrArticleUnavailable = errors.New("article could not be loaded")
	ErrActionFailed       = errors.New("action failed")
)

type Library interface {
	ListCategory(ctx context.Context, c article.Category, opts library.ListOptions) []article.Article
	GetArticle(ctx context.Context, id string) (article.Article, bool)
	GetArticleContent(ctx context.Context, id string) (article.Article, bool)
	Move(ctx context.Context, id string, dest article.Category) bool
	ToggleRead(ctx context.Context, id string, read bool) bool
	Delete(ctx context.Context, id string) bool
	ClearCache()
	LastError(c article.Category) error
}

type Repository interface {
	SaveCategory(ctx context.Context, c article.Category, articles []article.Article) error
	ListCategory(ctx context.Context, c article.Category, limit int) ([]article.Article, error)
	SavedAt(ctx context.Context, c article.Category) (time.Time, bool, error)
	RemoveArticle(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type Service struct {
	lib    Library
	repo   Repository
	log    *slog.Logger
	format articlefmt.Options
}

// NewService wires the library to the snapshot repository. repo may be nil,
// in which case nothing is persisted between runs.
func NewService(lib Library, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{lib: lib, repo: repo, log: logger, format: articlefmt.DefaultOptions()}
}

// SetFormatOptions changes how Document renders articles.
func (s *Service) SetFormatOptions(opts articlefmt.Options) {
	s.format = opts
}

// Refresh lists c through the library and snapshots the result. When the
// fetch failed the cached listing is returned together with the error.
func (s *Service) Refresh(ctx context.Context, c article.Category, force bool, limit int) ([]article.Article, error) {
	articles := s.lib.ListCategory(ctx, c, library.ListOptions{Refresh: force, Limit: limit})
	if err := s.lib.LastError(c); err != nil {
		return articles, fmt.Errorf("fetch %s from readwise: %w", c, err)
	}
	if s.repo != nil && limit < 1 {
		if err := s.repo.SaveCategory(ctx, c, articles); err != nil {
			s.log.Warn("save snapshot failed", "category", string(c), "err", err)
		}
	}
	return articles, nil
}

func (s *Service) ListCached(ctx context.Context, c article.Category, limit int) ([]article.Article, error) {
	if s.repo == nil {
		return nil, nil
	}
	articles, err := s.repo.ListCategory(ctx, c, limit)
	if err != nil {
		return nil, fmt.Errorf("load %s from snapshot: %w", c, err)
	}
	return articles, nil
}

// SnapshotSavedAt reports when the snapshot of c was written. The zero time
// means there is no snapshot or it could not be read.
func (s *Service) SnapshotSavedAt(ctx context.Context, c article.Category) time.Time {
	if s.repo == nil {
		return time.Time{}
	}
	t, ok, err := s.repo.SavedAt(ctx, c)
	if err != nil {
		s.log.Warn("read snapshot time failed", "category", string(c), "err", err)
		return time.Time{}
	}
	if !ok {
		return time.Time{}
	}
	return t
}

func (s *Service) Article(ctx context.Context, id string) (article.Article, error) {
	a, ok := s.lib.GetArticle(ctx, id)
	if !ok {
		return article.Article{}, fmt.Errorf("article %s: %w", id, ErrArticleUnavailable)
	}
	return a, nil
}

// Document returns the formatted Markdown for id along with the article.
func (s *Service) Document(ctx context.Context, id string) (string, article.Article, error) {
	a, ok := s.lib.GetArticleContent(ctx, id)
	if !ok {
		return "", article.Article{}, fmt.Errorf("article %s: %w", id, ErrArticleUnavailable)
	}
	return articlefmt.FormatWithOptions(a, s.format), a, nil
}

func (s *Service) Move(ctx context.Context, id string, dest article.Category) error {
	if !s.lib.Move(ctx, id, dest) {
		return fmt.Errorf("move %s to %s: %w", id, dest, ErrActionFailed)
	}
	s.forget(ctx, id)
	return nil
}

func (s *Service) ToggleRead(ctx context.Context, id string, read bool) error {
	if !s.lib.ToggleRead(ctx, id, read) {
		return fmt.Errorf("mark %s read=%t: %w", id, read, ErrActionFailed)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.lib.Delete(ctx, id) {
		return fmt.Errorf("delete %s: %w", id, ErrActionFailed)
	}
	s.forget(ctx, id)
	return nil
}

// ClearCache empties the in-memory caches and the snapshot.
func (s *Service) ClearCache(ctx context.Context) error {
	s.lib.ClearCache()
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

func (s *Service) forget(ctx context.Context, id string) {
	if s.repo == nil {
		return
	}
	if err := s.repo.RemoveArticle(ctx, id); err != nil {
		s.log.Warn("remove article from snapshot failed", "id", id, "err", err)
	}
}
