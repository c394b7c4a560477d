// Package library keeps the local view of the reading library in sync with
// the remote service. It caches one listing per category for a TTL, keeps a
// bounded cache of article details, and applies mutations with retries.
//
// Every exported operation is a fault barrier: failures are logged and
// reported through sentinel returns, never panics or errors.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/reuteras/rwreader/internal/article"
	"github.com/reuteras/rwreader/internal/boundedcache"
	"github.com/reuteras/rwreader/internal/readwise"
)

const (
	DefaultTTL              = 5 * time.Minute
	DefaultArticleCacheSize = 100
	DefaultArchiveWindow    = 30 * 24 * time.Hour
)

// DocumentSource is the remote service as seen by the library.
type DocumentSource interface {
	ListAll(ctx context.Context, params readwise.ListParams) ([]readwise.Document, error)
	GetDocument(ctx context.Context, id string) (readwise.Document, error)
	UpdateDocument(ctx context.Context, id string, fields map[string]any) error
	DeleteDocument(ctx context.Context, id string) error
}

type Options struct {
	TTL              time.Duration
	ArticleCacheSize int
	// ArchiveWindow limits archive listings to documents updated within the
	// window. Zero lists the whole archive.
	ArchiveWindow time.Duration
	// ListWithContent asks listings for HTML bodies, which makes listed
	// articles count as detail records.
	ListWithContent bool
	Retry           RetryPolicy
	Now             func() time.Time
	Logger          *slog.Logger
}

// Bucket is the cached listing of one category.
type Bucket struct {
	Data        []article.Article
	LastUpdated time.Time
	Complete    bool
	Err         error
}

type buckets struct {
	inbox   Bucket
	later   Bucket
	archive Bucket
	feed    Bucket
}

func (b *buckets) get(c article.Category) *Bucket {
	switch c {
	case article.Inbox:
		return &b.inbox
	case article.Later:
		return &b.later
	case article.Archive:
		return &b.archive
	case article.Feed:
		return &b.feed
	default:
		return nil
	}
}

func (b *buckets) each(fn func(*Bucket)) {
	for _, c := range article.Categories {
		fn(b.get(c))
	}
}

type cachedArticle struct {
	article article.Article
	detail  bool
}

type Library struct {
	api  DocumentSource
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	buckets buckets
	details *boundedcache.Cache[string, cachedArticle]
}

func New(api DocumentSource, opts Options) *Library {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ArticleCacheSize < 1 {
		opts.ArticleCacheSize = DefaultArticleCacheSize
	}
	if opts.ArchiveWindow < 0 {
		opts.ArchiveWindow = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Retry = opts.Retry.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Library{
		api:     api,
		opts:    opts,
		log:     logger,
		details: boundedcache.New[string, cachedArticle](opts.ArticleCacheSize),
	}
}

type ListOptions struct {
	Refresh bool
	// Limit truncates the returned slice when positive.
	Limit int
}

// ListCategory returns the listing for c. Fresh cached data, and any listing
// already fetched completely, is returned without a network call unless
// opts.Refresh is set; otherwise the whole category is fetched. On fetch
// failure whatever is cached (possibly nothing) is returned and LastError
// reports the failure until the next successful listing.
func (l *Library) ListCategory(ctx context.Context, c article.Category, opts ListOptions) []article.Article {
	l.mu.Lock()
	b := l.buckets.get(c)
	if b == nil {
		l.mu.Unlock()
		l.log.Warn("unknown category requested", "category", string(c))
		return nil
	}
	now := l.opts.Now()
	fresh := !b.LastUpdated.IsZero() && now.Sub(b.LastUpdated) < l.opts.TTL
	if !opts.Refresh && (b.Complete || (fresh && len(b.Data) > 0)) {
		if !fresh {
			// A complete listing only needs its timestamp renewed.
			b.LastUpdated = now
			l.log.Debug("reusing complete listing", "category", string(c))
		}
		b.Err = nil
		out := truncate(b.Data, opts.Limit)
		l.mu.Unlock()
		return out
	}
	l.mu.Unlock()

	articles, err := l.fetchCategory(ctx, c, now)

	l.mu.Lock()
	defer l.mu.Unlock()
	b = l.buckets.get(c)
	if err != nil {
		b.Err = err
		l.log.Error("fetch category failed", "category", string(c), "err", err)
		return truncate(b.Data, opts.Limit)
	}
	b.Data = articles
	b.LastUpdated = l.opts.Now()
	b.Complete = true
	b.Err = nil
	for _, a := range articles {
		l.storeLocked(a, l.opts.ListWithContent)
	}
	l.log.Info("fetched category", "category", string(c), "count", len(articles))
	return truncate(articles, opts.Limit)
}

func (l *Library) Inbox(ctx context.Context, refresh bool) []article.Article {
	return l.ListCategory(ctx, article.Inbox, ListOptions{Refresh: refresh})
}

func (l *Library) Later(ctx context.Context, refresh bool) []article.Article {
	return l.ListCategory(ctx, article.Later, ListOptions{Refresh: refresh})
}

func (l *Library) Archive(ctx context.Context, refresh bool) []article.Article {
	return l.ListCategory(ctx, article.Archive, ListOptions{Refresh: refresh})
}

func (l *Library) Feed(ctx context.Context, refresh bool) []article.Article {
	return l.ListCategory(ctx, article.Feed, ListOptions{Refresh: refresh})
}

func (l *Library) fetchCategory(ctx context.Context, c article.Category, now time.Time) (articles []article.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s: panic: %v", c, r)
		}
	}()

	params := readwise.ListParams{
		Location:        c.Location(),
		WithHTMLContent: l.opts.ListWithContent,
	}
	if c == article.Archive && l.opts.ArchiveWindow > 0 {
		params.UpdatedAfter = now.Add(-l.opts.ArchiveWindow)
	}
	docs, err := l.api.ListAll(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c, err)
	}
	articles = make([]article.Article, 0, len(docs))
	for _, doc := range docs {
		a := article.FromDocument(doc)
		if a.ID == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// GetArticle returns the cached record for id, which may be a listing
// summary, and fetches it only on a cache miss. The boolean is false when
// the article could not be loaded, which includes but is not limited to the
// service reporting it missing.
func (l *Library) GetArticle(ctx context.Context, id string) (article.Article, bool) {
	return l.getArticle(ctx, id, false)
}

// GetArticleContent is GetArticle for callers that need the body. Records
// cached from summary listings are replaced by a detail fetch once.
func (l *Library) GetArticleContent(ctx context.Context, id string) (article.Article, bool) {
	return l.getArticle(ctx, id, true)
}

func (l *Library) getArticle(ctx context.Context, id string, needDetail bool) (article.Article, bool) {
	l.mu.Lock()
	if cached, ok := l.details.Get(id); ok && (cached.detail || !needDetail) {
		l.mu.Unlock()
		return cached.article.Clone(), true
	}
	l.mu.Unlock()

	a, err := l.fetchArticle(ctx, id)
	if err != nil {
		if errors.Is(err, readwise.ErrNotFound) {
			l.log.Info("article not found", "id", id)
		} else {
			l.log.Error("fetch article failed", "id", id, "err", err)
		}
		return article.Article{}, false
	}

	l.mu.Lock()
	l.storeLocked(a, true)
	l.mu.Unlock()
	return a.Clone(), true
}

func (l *Library) fetchArticle(ctx context.Context, id string) (a article.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch article %s: panic: %v", id, r)
		}
	}()
	doc, err := l.api.GetDocument(ctx, id)
	if err != nil {
		return article.Article{}, err
	}
	a = article.FromDocument(doc)
	if a.ID == "" {
		a.ID = id
	}
	return a, nil
}

// storeLocked caches a without downgrading an existing detail record to a
// summary.
func (l *Library) storeLocked(a article.Article, detail bool) {
	if existing, ok := l.details.Get(a.ID); ok && existing.detail && !detail {
		return
	}
	l.details.Set(a.ID, cachedArticle{article: a.Clone(), detail: detail})
}

// Move sets the category of id. Only inbox, later and archive are valid
// destinations.
func (l *Library) Move(ctx context.Context, id string, dest article.Category) bool {
	switch dest {
	case article.Inbox, article.Later, article.Archive:
	default:
		l.log.Warn("invalid move destination", "id", id, "destination", string(dest))
		return false
	}

	ok := l.mutate(ctx, "move", id, func(ctx context.Context) error {
		return l.api.UpdateDocument(ctx, id, map[string]any{"location": dest.Location()})
	})
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateCachedLocked(id, func(a *article.Article) { a.SetCategory(dest) })
	l.buckets.each(func(b *Bucket) {
		b.Data = without(b.Data, id)
		invalidate(b)
	})
	l.log.Info("moved article", "id", id, "destination", string(dest))
	return true
}

func (l *Library) MoveToInbox(ctx context.Context, id string) bool {
	return l.Move(ctx, id, article.Inbox)
}

func (l *Library) MoveToLater(ctx context.Context, id string) bool {
	return l.Move(ctx, id, article.Later)
}

func (l *Library) MoveToArchive(ctx context.Context, id string) bool {
	return l.Move(ctx, id, article.Archive)
}

// ToggleRead sets the read state of id and mirrors it into every cached
// copy.
func (l *Library) ToggleRead(ctx context.Context, id string, read bool) bool {
	state := article.StateReading
	if read {
		state = article.StateFinished
	}
	ok := l.mutate(ctx, "toggle read", id, func(ctx context.Context) error {
		return l.api.UpdateDocument(ctx, id, map[string]any{"state": state})
	})
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateCachedLocked(id, func(a *article.Article) { a.SetRead(read) })
	l.buckets.each(func(b *Bucket) {
		for i := range b.Data {
			if b.Data[i].ID == id {
				b.Data[i].SetRead(read)
			}
		}
	})
	return true
}

// Delete removes id on the service. Listings are marked stale but not
// scrubbed; callers drop the row from whatever they display.
func (l *Library) Delete(ctx context.Context, id string) bool {
	ok := l.mutate(ctx, "delete", id, func(ctx context.Context) error {
		return l.api.DeleteDocument(ctx, id)
	})
	if !ok {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.details.Delete(id)
	l.buckets.each(invalidate)
	l.log.Info("deleted article", "id", id)
	return true
}

// ClearCache drops every listing and every cached article.
func (l *Library) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = buckets{}
	l.details.Clear()
}

// Snapshot returns a copy of the bucket for c.
func (l *Library) Snapshot(c article.Category) Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.buckets.get(c)
	if b == nil {
		return Bucket{}
	}
	out := *b
	out.Data = append([]article.Article(nil), b.Data...)
	return out
}

// LastError reports the most recent listing failure for c, or nil.
func (l *Library) LastError(c article.Category) error {
	return l.Snapshot(c).Err
}

func (l *Library) updateCachedLocked(id string, fn func(*article.Article)) {
	cached, ok := l.details.Get(id)
	if !ok {
		return
	}
	fn(&cached.article)
	l.details.Set(id, cached)
}

// mutate runs fn with the retry policy. Rate limits wait for the delay the
// service asked for; transient failures back off exponentially; anything
// else fails immediately.
func (l *Library) mutate(ctx context.Context, op, id string, fn func(context.Context) error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("mutation panicked", "op", op, "id", id, "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	policy := l.opts.Retry
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return true
		}
		lastErr = err

		var delay time.Duration
		var rl *readwise.RateLimitError
		switch {
		case errors.As(err, &rl):
			delay = policy.DefaultRateLimitDelay
			if rl.HasRetryAfter {
				delay = rl.RetryAfter
			}
		case readwise.IsTransient(err):
			delay = policy.backoff(attempt)
		default:
			l.log.Error("mutation failed", "op", op, "id", id, "err", err)
			return false
		}

		if attempt == policy.MaxAttempts {
			break
		}
		l.log.Warn("mutation retrying", "op", op, "id", id, "attempt", attempt, "delay", delay, "err", err)
		if err := policy.Sleep(ctx, delay); err != nil {
			l.log.Error("mutation cancelled", "op", op, "id", id, "err", err)
			return false
		}
	}
	l.log.Error("mutation retries exhausted", "op", op, "id", id, "attempts", policy.MaxAttempts, "err", lastErr)
	return false
}

func invalidate(b *Bucket) {
	b.LastUpdated = time.Time{}
	b.Complete = false
}

func without(list []article.Article, id string) []article.Article {
	out := list[:0:0]
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func truncate(list []article.Article, limit int) []article.Article {
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]article.Article, n)
	copy(out, list[:n])
	return out
}
