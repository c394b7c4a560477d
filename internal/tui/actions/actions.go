package actions

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reuteras/rwreader/internal/article"
)

const (
	listTimeout     = 30 * time.Second
	documentTimeout = 20 * time.Second
	// Mutations can sit out a rate limit before their last attempt.
	mutationTimeout = 150 * time.Second
	cacheTimeout    = 10 * time.Second
)

type Service interface {
	Refresh(ctx context.Context, c article.Category, force bool, limit int) ([]article.Article, error)
	ListCached(ctx context.Context, c article.Category, limit int) ([]article.Article, error)
	SnapshotSavedAt(ctx context.Context, c article.Category) time.Time
	Document(ctx context.Context, id string) (string, article.Article, error)
	Move(ctx context.Context, id string, dest article.Category) error
	ToggleRead(ctx context.Context, id string, read bool) error
	Delete(ctx context.Context, id string) error
	ClearCache(ctx context.Context) error
}

type RefreshSuccessMsg struct {
	Category article.Category
	Articles []article.Article
	Duration time.Duration
	Source   string
}

// RefreshErrorMsg carries whatever the library still had cached for the
// category alongside the error.
type RefreshErrorMsg struct {
	Category article.Category
	Articles []article.Article
	Err      error
	Duration time.Duration
	Source   string
}

// SnapshotLoadSuccessMsg has a zero SavedAt when the snapshot age is unknown.
type SnapshotLoadSuccessMsg struct {
	Category article.Category
	Articles []article.Article
	SavedAt  time.Time
}

type SnapshotLoadErrorMsg struct {
	Category article.Category
	Err      error
}

type DocumentLoadSuccessMsg struct {
	ID       string
	Article  article.Article
	Markdown string
}

type DocumentLoadErrorMsg struct {
	ID  string
	Err error
}

type MoveSuccessMsg struct {
	ID     string
	Dest   article.Category
	Status string
}

type ToggleReadSuccessMsg struct {
	ID       string
	NextRead bool
	Status   string
}

type DeleteSuccessMsg struct {
	ID     string
	Status string
}

type ArticleActionErrorMsg struct {
	ID  string
	Err error
}

type ClearCacheSuccessMsg struct {
	Status string
}

type ClearCacheErrorMsg struct {
	Err error
}

type OpenURLSuccessMsg struct {
	Status  string
	ID      string
	ReadWas bool
	Opened  bool
}

type OpenURLErrorMsg struct {
	Err error
}

func RefreshCmd(service Service, c article.Category, force bool, source string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		start := time.Now()

		articles, err := service.Refresh(ctx, c, force, 0)
		if err != nil {
			return RefreshErrorMsg{Category: c, Articles: articles, Err: err, Duration: time.Since(start), Source: source}
		}
		return RefreshSuccessMsg{Category: c, Articles: articles, Duration: time.Since(start), Source: source}
	}
}

func LoadSnapshotCmd(service Service, c article.Category, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()

		articles, err := service.ListCached(ctx, c, limit)
		if err != nil {
			return SnapshotLoadErrorMsg{Category: c, Err: err}
		}
		return SnapshotLoadSuccessMsg{Category: c, Articles: articles, SavedAt: service.SnapshotSavedAt(ctx, c)}
	}
}

func LoadDocumentCmd(service Service, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), documentTimeout)
		defer cancel()

		doc, a, err := service.Document(ctx, id)
		if err != nil {
			return DocumentLoadErrorMsg{ID: id, Err: err}
		}
		return DocumentLoadSuccessMsg{ID: id, Article: a, Markdown: doc}
	}
}

func MoveCmd(service Service, id string, dest article.Category) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		if err := service.Move(ctx, id, dest); err != nil {
			return ArticleActionErrorMsg{ID: id, Err: err}
		}
		return MoveSuccessMsg{ID: id, Dest: dest, Status: "Moved to " + dest.Label()}
	}
}

func ToggleReadCmd(service Service, id string, currentRead bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		next := !currentRead
		if err := service.ToggleRead(ctx, id, next); err != nil {
			return ArticleActionErrorMsg{ID: id, Err: err}
		}

		status := "Marked as unread"
		if next {
			status = "Marked as read"
		}
		return ToggleReadSuccessMsg{ID: id, NextRead: next, Status: status}
	}
}

func DeleteCmd(service Service, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()

		if err := service.Delete(ctx, id); err != nil {
			return ArticleActionErrorMsg{ID: id, Err: err}
		}
		return DeleteSuccessMsg{ID: id, Status: "Deleted article"}
	}
}

func ClearCacheCmd(service Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()

		if err := service.ClearCache(ctx); err != nil {
			return ClearCacheErrorMsg{Err: err}
		}
		return ClearCacheSuccessMsg{Status: "Cache cleared"}
	}
}

func OpenURLCmd(id string, readWas bool, url string, openFn, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if url == "" {
			return OpenURLErrorMsg{Err: fmt.Errorf("article has no URL")}
		}
		if openFn != nil {
			if err := openFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Opened URL in browser", ID: id, ReadWas: readWas, Opened: true}
			}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "Could not open browser, URL copied to clipboard", ID: id, ReadWas: readWas, Opened: false}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not open URL or copy to clipboard")}
	}
}

func CopyURLCmd(url string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		if url == "" {
			return OpenURLErrorMsg{Err: fmt.Errorf("article has no URL")}
		}
		if copyFn != nil {
			if err := copyFn(url); err == nil {
				return OpenURLSuccessMsg{Status: "URL copied to clipboard"}
			}
		}
		return OpenURLErrorMsg{Err: fmt.Errorf("could not copy URL to clipboard")}
	}
}
