package actions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reuteras/rwreader/internal/article"
)

type fakeService struct {
	refreshArticles []article.Article
	refreshErr      error

	cachedArticles []article.Article
	cachedErr      error
	savedAt        time.Time

	doc    string
	docErr error

	mutationErr error
	clearErr    error

	lastRefreshDeadline  time.Time
	lastMutationDeadline time.Time
	lastForce            bool
	lastCategory         article.Category
	lastMoveDest         article.Category
	lastRead             bool
}

func (f *fakeService) Refresh(ctx context.Context, c article.Category, force bool, limit int) ([]article.Article, error) {
	if dl, ok := ctx.Deadline(); ok {
		f.lastRefreshDeadline = dl
	}
	f.lastCategory = c
	f.lastForce = force
	return f.refreshArticles, f.refreshErr
}

func (f *fakeService) ListCached(ctx context.Context, c article.Category, limit int) ([]article.Article, error) {
	f.lastCategory = c
	if f.cachedErr != nil {
		return nil, f.cachedErr
	}
	return f.cachedArticles, nil
}

func (f *fakeService) SnapshotSavedAt(context.Context, article.Category) time.Time {
	return f.savedAt
}

func (f *fakeService) Document(ctx context.Context, id string) (string, article.Article, error) {
	if f.docErr != nil {
		return "", article.Article{}, f.docErr
	}
	return f.doc, article.Article{ID: id}, nil
}

func (f *fakeService) Move(ctx context.Context, id string, dest article.Category) error {
	if dl, ok := ctx.Deadline(); ok {
		f.lastMutationDeadline = dl
	}
	f.lastMoveDest = dest
	return f.mutationErr
}

func (f *fakeService) ToggleRead(ctx context.Context, id string, read bool) error {
	f.lastRead = read
	return f.mutationErr
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	return f.mutationErr
}

func (f *fakeService) ClearCache(ctx context.Context) error {
	return f.clearErr
}

func TestRefreshCmd(t *testing.T) {
	svc := &fakeService{refreshArticles: []article.Article{{ID: "1"}}}
	msg := RefreshCmd(svc, article.Later, true, "manual")()
	success, ok := msg.(RefreshSuccessMsg)
	if !ok {
		t.Fatalf("expected RefreshSuccessMsg, got %T", msg)
	}
	if success.Source != "manual" || success.Category != article.Later || len(success.Articles) != 1 {
		t.Fatalf("unexpected success payload: %+v", success)
	}
	if !svc.lastForce || svc.lastCategory != article.Later {
		t.Fatalf("unexpected refresh args: force=%v category=%s", svc.lastForce, svc.lastCategory)
	}
	if svc.lastRefreshDeadline.IsZero() {
		t.Fatal("expected refresh context deadline to be set")
	}
}

func TestRefreshCmd_ErrorKeepsCachedArticles(t *testing.T) {
	svc := &fakeService{refreshArticles: []article.Article{{ID: "stale"}}, refreshErr: errors.New("offline")}
	msg := RefreshCmd(svc, article.Inbox, false, "startup")()
	failure, ok := msg.(RefreshErrorMsg)
	if !ok {
		t.Fatalf("expected RefreshErrorMsg, got %T", msg)
	}
	if len(failure.Articles) != 1 || failure.Articles[0].ID != "stale" {
		t.Fatalf("expected cached articles in error payload, got %+v", failure)
	}
}

func TestLoadSnapshotAndDocumentCmds(t *testing.T) {
	saved := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	svc := &fakeService{cachedArticles: []article.Article{{ID: "10"}}, doc: "# Title", savedAt: saved}

	msg := LoadSnapshotCmd(svc, article.Archive, 50)()
	snap, ok := msg.(SnapshotLoadSuccessMsg)
	if !ok {
		t.Fatalf("expected SnapshotLoadSuccessMsg, got %T", msg)
	}
	if snap.Category != article.Archive || len(snap.Articles) != 1 || !snap.SavedAt.Equal(saved) {
		t.Fatalf("unexpected snapshot payload: %+v", snap)
	}

	msg = LoadDocumentCmd(svc, "10")()
	doc, ok := msg.(DocumentLoadSuccessMsg)
	if !ok {
		t.Fatalf("expected DocumentLoadSuccessMsg, got %T", msg)
	}
	if doc.ID != "10" || doc.Markdown != "# Title" {
		t.Fatalf("unexpected document payload: %+v", doc)
	}
}

func TestMutationCmds(t *testing.T) {
	svc := &fakeService{}

	msg := MoveCmd(svc, "1", article.Archive)()
	moved, ok := msg.(MoveSuccessMsg)
	if !ok {
		t.Fatalf("expected MoveSuccessMsg, got %T", msg)
	}
	if moved.Dest != article.Archive || moved.Status != "Moved to Archive" {
		t.Fatalf("unexpected move payload: %+v", moved)
	}
	if svc.lastMutationDeadline.IsZero() {
		t.Fatal("expected mutation context deadline to be set")
	}

	msg = ToggleReadCmd(svc, "1", false)()
	toggled, ok := msg.(ToggleReadSuccessMsg)
	if !ok {
		t.Fatalf("expected ToggleReadSuccessMsg, got %T", msg)
	}
	if !toggled.NextRead || !svc.lastRead || toggled.Status != "Marked as read" {
		t.Fatalf("unexpected toggle payload: %+v", toggled)
	}

	msg = DeleteCmd(svc, "1")()
	if _, ok := msg.(DeleteSuccessMsg); !ok {
		t.Fatalf("expected DeleteSuccessMsg, got %T", msg)
	}

	msg = ClearCacheCmd(svc)()
	if _, ok := msg.(ClearCacheSuccessMsg); !ok {
		t.Fatalf("expected ClearCacheSuccessMsg, got %T", msg)
	}
}

func TestActionErrors(t *testing.T) {
	svc := &fakeService{
		cachedErr:   errors.New("db locked"),
		docErr:      errors.New("not found"),
		mutationErr: errors.New("action failed"),
		clearErr:    errors.New("clear failed"),
	}

	if _, ok := LoadSnapshotCmd(svc, article.Inbox, 10)().(SnapshotLoadErrorMsg); !ok {
		t.Fatal("expected SnapshotLoadErrorMsg")
	}
	if _, ok := LoadDocumentCmd(svc, "1")().(DocumentLoadErrorMsg); !ok {
		t.Fatal("expected DocumentLoadErrorMsg")
	}
	if _, ok := MoveCmd(svc, "1", article.Later)().(ArticleActionErrorMsg); !ok {
		t.Fatal("expected ArticleActionErrorMsg for move")
	}
	if _, ok := ToggleReadCmd(svc, "1", true)().(ArticleActionErrorMsg); !ok {
		t.Fatal("expected ArticleActionErrorMsg for toggle")
	}
	if _, ok := DeleteCmd(svc, "1")().(ArticleActionErrorMsg); !ok {
		t.Fatal("expected ArticleActionErrorMsg for delete")
	}
	if _, ok := ClearCacheCmd(svc)().(ClearCacheErrorMsg); !ok {
		t.Fatal("expected ClearCacheErrorMsg")
	}
}

func TestOpenURLCmd_Fallbacks(t *testing.T) {
	msg := OpenURLCmd("1", false, "https://example.com",
		func(string) error { return nil },
		func(string) error { return nil },
	)()
	success, ok := msg.(OpenURLSuccessMsg)
	if !ok || !success.Opened {
		t.Fatalf("expected opened success, got %T %+v", msg, success)
	}

	msg = OpenURLCmd("1", false, "https://example.com",
		func(string) error { return errors.New("open failed") },
		func(string) error { return nil },
	)()
	success, ok = msg.(OpenURLSuccessMsg)
	if !ok || success.Opened {
		t.Fatalf("expected copy fallback success, got %T %+v", msg, success)
	}

	msg = OpenURLCmd("1", false, "https://example.com",
		func(string) error { return errors.New("open failed") },
		func(string) error { return errors.New("copy failed") },
	)()
	if _, ok := msg.(OpenURLErrorMsg); !ok {
		t.Fatalf("expected OpenURLErrorMsg, got %T", msg)
	}

	msg = OpenURLCmd("1", false, "", func(string) error { return nil }, nil)()
	if _, ok := msg.(OpenURLErrorMsg); !ok {
		t.Fatalf("expected OpenURLErrorMsg for empty URL, got %T", msg)
	}
}

func TestCopyURLCmd(t *testing.T) {
	msg := CopyURLCmd("https://example.com", func(string) error { return nil })()
	if _, ok := msg.(OpenURLSuccessMsg); !ok {
		t.Fatalf("expected OpenURLSuccessMsg, got %T", msg)
	}
	msg = CopyURLCmd("https://example.com", func(string) error { return errors.New("copy failed") })()
	if _, ok := msg.(OpenURLErrorMsg); !ok {
		t.Fatalf("expected OpenURLErrorMsg, got %T", msg)
	}
}
