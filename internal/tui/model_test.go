package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reuteras/rwreader/internal/article"
	tuiactions "github.com/reuteras/rwreader/internal/tui/actions"
)

type fakeService struct {
	listed     map[article.Category][]article.Article
	snapshot   map[article.Category][]article.Article
	savedAt    time.Time
	refreshErr error
	doc        string
	docErr     error
	actionErr  error

	refreshed []article.Category
	moved     map[string]article.Category
	deleted   []string
	cleared   bool
}

func (f *fakeService) Refresh(_ context.Context, c article.Category, _ bool, _ int) ([]article.Article, error) {
	f.refreshed = append(f.refreshed, c)
	return f.listed[c], f.refreshErr
}

func (f *fakeService) ListCached(_ context.Context, c article.Category, _ int) ([]article.Article, error) {
	return f.snapshot[c], nil
}

func (f *fakeService) SnapshotSavedAt(context.Context, article.Category) time.Time {
	return f.savedAt
}

func (f *fakeService) Document(_ context.Context, id string) (string, article.Article, error) {
	if f.docErr != nil {
		return "", article.Article{}, f.docErr
	}
	return f.doc, article.Article{ID: id, Read: true, State: article.StateFinished}, nil
}

func (f *fakeService) Move(_ context.Context, id string, dest article.Category) error {
	if f.actionErr != nil {
		return f.actionErr
	}
	if f.moved == nil {
		f.moved = map[string]article.Category{}
	}
	f.moved[id] = dest
	return nil
}

func (f *fakeService) ToggleRead(context.Context, string, bool) error {
	return f.actionErr
}

func (f *fakeService) Delete(_ context.Context, id string) error {
	if f.actionErr != nil {
		return f.actionErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) ClearCache(context.Context) error {
	f.cleared = true
	return nil
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model after update, got %T", next)
	}
	return model, cmd
}

// runCmd executes cmd and returns every message it produced, flattening
// batches. It must not be used on commands that include a status timer.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func seededModel(svc Service, articles ...article.Article) Model {
	m := NewModel(svc, Options{})
	m.SeedCategory(article.Inbox, articles)
	return m
}

func TestModelView_ShowsArticles(t *testing.T) {
	m := seededModel(nil, article.Article{
		ID:        "1",
		Title:     "First Article",
		SiteName:  "Example",
		CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.Local),
	})

	view := ansiScreenStrip.ReplaceAllString(m.View(), "")
	for _, want := range []string{"First Article · Example", "> •", "1 Inbox 1", "from snapshot"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestModelView_EmptyCategory(t *testing.T) {
	m := NewModel(nil, Options{ShowFeed: true})
	view := ansiScreenStrip.ReplaceAllString(m.View(), "")
	if !strings.Contains(view, "No articles in Inbox.") || !strings.Contains(view, "4 Feed") {
		t.Fatalf("unexpected empty view:\n%s", view)
	}
}

func TestModelInit_LoadsSnapshotsThenRefreshes(t *testing.T) {
	svc := &fakeService{
		snapshot: map[article.Category][]article.Article{article.Later: {{ID: "s1"}}},
		listed:   map[article.Category][]article.Article{article.Inbox: {{ID: "n1"}}},
	}
	m := NewModel(svc, Options{})

	msgs := runCmd(m.Init())
	var snapshots, refreshes int
	for _, msg := range msgs {
		switch msg.(type) {
		case tuiactions.SnapshotLoadSuccessMsg:
			snapshots++
		case tuiactions.RefreshSuccessMsg:
			refreshes++
		}
		m, _ = update(t, m, msg)
	}
	if snapshots != 3 || refreshes != 1 {
		t.Fatalf("expected 3 snapshot loads and 1 refresh, got %d and %d", snapshots, refreshes)
	}
	if len(m.lists[article.Later]) != 1 || m.sources[article.Later] != sourceSnapshot {
		t.Fatalf("expected later seeded from snapshot, got %+v (%s)", m.lists[article.Later], m.sources[article.Later])
	}
	if len(m.lists[article.Inbox]) != 1 || m.sources[article.Inbox] != sourceReadwise {
		t.Fatalf("expected inbox from refresh, got %+v (%s)", m.lists[article.Inbox], m.sources[article.Inbox])
	}
}

func TestModelUpdate_SnapshotDoesNotOverrideFreshListing(t *testing.T) {
	m := NewModel(nil, Options{})
	m, _ = update(t, m, tuiactions.RefreshSuccessMsg{Category: article.Inbox, Articles: []article.Article{{ID: "fresh"}}})
	m, _ = update(t, m, tuiactions.SnapshotLoadSuccessMsg{Category: article.Inbox, Articles: []article.Article{{ID: "old"}}})
	if got := m.lists[article.Inbox]; len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("expected fresh listing kept, got %+v", got)
	}
}

func TestModelView_ShowsSnapshotAge(t *testing.T) {
	now := time.Date(2026, 2, 11, 16, 0, 0, 0, time.UTC)
	m := NewModel(nil, Options{})
	m.nowFn = func() time.Time { return now }
	m, _ = update(t, m, tuiactions.SnapshotLoadSuccessMsg{
		Category: article.Inbox,
		Articles: []article.Article{{ID: "old", Title: "Old Story"}},
		SavedAt:  now.Add(-3 * time.Hour),
	})

	out := ansiScreenStrip.ReplaceAllString(m.View(), "")
	if !strings.Contains(out, "from snapshot saved 3 hours ago") {
		t.Fatalf("expected snapshot age in footer, got:\n%s", out)
	}

	m, _ = update(t, m, tuiactions.RefreshSuccessMsg{Category: article.Inbox, Articles: []article.Article{{ID: "new"}}})
	out = ansiScreenStrip.ReplaceAllString(m.View(), "")
	if strings.Contains(out, "saved") || !strings.Contains(out, "from readwise") {
		t.Fatalf("expected live source after refresh, got:\n%s", out)
	}
}

func TestModelView_RelativeTimeOption(t *testing.T) {
	now := time.Date(2026, 2, 11, 16, 0, 0, 0, time.UTC)
	m := NewModel(nil, Options{RelativeTime: true})
	m.nowFn = func() time.Time { return now }
	m.SeedCategory(article.Inbox, []article.Article{{ID: "1", Title: "Recent", CreatedAt: now.Add(-2 * time.Hour)}})

	out := ansiScreenStrip.ReplaceAllString(m.View(), "")
	if !strings.Contains(out, "2 hours ago") || strings.Contains(out, "2026-02-11") {
		t.Fatalf("expected relative date, got:\n%s", out)
	}
}

func TestModelUpdate_RefreshErrorKeepsCachedArticles(t *testing.T) {
	svc := &fakeService{
		listed:     map[article.Category][]article.Article{article.Inbox: {{ID: "cached"}}},
		refreshErr: errors.New("network"),
	}
	m := NewModel(svc, Options{})

	m, cmd := update(t, m, keyRune('r'))
	if !m.loading {
		t.Fatal("expected loading state during refresh")
	}
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if m.err == nil || m.loading {
		t.Fatalf("expected refresh error and loading cleared, got err=%v loading=%v", m.err, m.loading)
	}
	if len(m.lists[article.Inbox]) != 1 || m.sources[article.Inbox] != sourceCache {
		t.Fatalf("expected cached articles shown, got %+v", m.lists[article.Inbox])
	}
}

func TestModelUpdate_NavigateAndOpenDetail(t *testing.T) {
	m := seededModel(nil, article.Article{ID: "1", Title: "First"}, article.Article{ID: "2", Title: "Second"})

	m, _ = update(t, m, keyRune('j'))
	if m.cursors[article.Inbox] != 1 {
		t.Fatalf("expected cursor at 1, got %d", m.cursors[article.Inbox])
	}
	m, _ = update(t, m, keyRune('j'))
	if m.cursors[article.Inbox] != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.cursors[article.Inbox])
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.inDetail || m.detailID != "2" {
		t.Fatalf("expected detail for article 2, got inDetail=%v id=%q", m.inDetail, m.detailID)
	}

	m, _ = update(t, m, keyRune('['))
	if m.detailID != "1" || m.cursors[article.Inbox] != 0 {
		t.Fatalf("expected previous article in detail, got id=%q cursor=%d", m.detailID, m.cursors[article.Inbox])
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.inDetail {
		t.Fatal("expected esc to return to list")
	}
}

func TestModelUpdate_DocumentLoaded(t *testing.T) {
	svc := &fakeService{doc: "# Doc Title\n\nHello body text."}
	m := seededModel(svc, article.Article{ID: "1", Title: "Doc Title"})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 90, Height: 30})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected only a document load, got %d messages", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if m.detailLoading {
		t.Fatal("expected detail loading cleared")
	}
	view := ansiScreenStrip.ReplaceAllString(m.View(), "")
	if !strings.Contains(view, "Hello") || !strings.Contains(view, "mode detail") {
		t.Fatalf("expected rendered document in view, got:\n%s", view)
	}
	if !m.lists[article.Inbox][0].Read {
		t.Fatal("expected read state synced from the loaded article")
	}

	// A late response for another article is ignored.
	m, _ = update(t, m, tuiactions.DocumentLoadSuccessMsg{ID: "other", Markdown: "# Other"})
	if m.detailMarkdown != svc.doc {
		t.Fatalf("expected stale document ignored, got %q", m.detailMarkdown)
	}
}

func TestModelUpdate_MarkReadOnOpen(t *testing.T) {
	svc := &fakeService{doc: "body"}
	m := NewModel(svc, Options{MarkReadOnOpen: true})
	m.SeedCategory(article.Inbox, []article.Article{{ID: "1"}})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	var sawToggle bool
	for _, msg := range runCmd(cmd) {
		if toggled, ok := msg.(tuiactions.ToggleReadSuccessMsg); ok && toggled.NextRead {
			sawToggle = true
		}
	}
	if !sawToggle {
		t.Fatal("expected opening an unread article to mark it read")
	}
}

func TestModelUpdate_SwitchCategoryRefreshes(t *testing.T) {
	svc := &fakeService{listed: map[article.Category][]article.Article{article.Later: {{ID: "l1"}, {ID: "l2"}}}}
	m := NewModel(svc, Options{})

	m, cmd := update(t, m, keyRune('2'))
	if m.active != article.Later {
		t.Fatalf("expected later tab active, got %s", m.active)
	}
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one refresh message, got %d", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if len(m.currentList()) != 2 {
		t.Fatalf("expected later listing, got %+v", m.currentList())
	}

	// The feed tab is hidden unless enabled.
	m, cmd = update(t, m, keyRune('4'))
	if m.active != article.Later || cmd != nil {
		t.Fatalf("expected hidden feed tab ignored, got %s", m.active)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.active != article.Archive {
		t.Fatalf("expected tab to cycle to archive, got %s", m.active)
	}
}

func TestModelUpdate_MoveRemovesRow(t *testing.T) {
	svc := &fakeService{}
	m := seededModel(svc, article.Article{ID: "1"}, article.Article{ID: "2"}, article.Article{ID: "3"})
	m.fresh[article.Archive] = true
	m, _ = update(t, m, keyRune('j'))

	m, cmd := update(t, m, keyRune('a'))
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one move message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(tuiactions.MoveSuccessMsg); !ok {
		t.Fatalf("expected MoveSuccessMsg, got %T", msgs[0])
	}
	if svc.moved["2"] != article.Archive {
		t.Fatalf("expected article 2 moved to archive, got %+v", svc.moved)
	}

	m, _ = update(t, m, msgs[0])
	list := m.currentList()
	if len(list) != 2 || list[0].ID != "1" || list[1].ID != "3" {
		t.Fatalf("expected row removed, got %+v", list)
	}
	if a, _ := m.currentArticle(); a.ID != "3" {
		t.Fatalf("expected cursor on next row, got %q", a.ID)
	}
	if m.fresh[article.Archive] {
		t.Fatal("expected destination listing marked stale")
	}
}

func TestModelUpdate_MoveToSameCategoryIsNoop(t *testing.T) {
	svc := &fakeService{}
	m := seededModel(svc, article.Article{ID: "1"})

	m, _ = update(t, m, keyRune('i'))
	if m.loading || !strings.Contains(m.status, "Already in Inbox") {
		t.Fatalf("expected no-op status, got loading=%v status=%q", m.loading, m.status)
	}
	if svc.moved != nil {
		t.Fatalf("expected no service call, got %+v", svc.moved)
	}
}

func TestModelUpdate_DeleteNeedsConfirmation(t *testing.T) {
	svc := &fakeService{}
	m := seededModel(svc, article.Article{ID: "1"}, article.Article{ID: "2"})

	m, _ = update(t, m, keyRune('D'))
	if m.pendingDeleteID != "1" || len(svc.deleted) != 0 {
		t.Fatalf("expected pending delete only, got pending=%q deleted=%v", m.pendingDeleteID, svc.deleted)
	}

	m, cmd := update(t, m, keyRune('D'))
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one delete message, got %d", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	if len(svc.deleted) != 1 || svc.deleted[0] != "1" {
		t.Fatalf("expected article 1 deleted, got %v", svc.deleted)
	}
	if list := m.currentList(); len(list) != 1 || list[0].ID != "2" {
		t.Fatalf("expected deleted row removed, got %+v", list)
	}
}

func TestModelUpdate_DeleteConfirmationResetByOtherKeys(t *testing.T) {
	m := seededModel(&fakeService{}, article.Article{ID: "1"}, article.Article{ID: "2"})
	m, _ = update(t, m, keyRune('D'))
	m, _ = update(t, m, keyRune('j'))
	if m.pendingDeleteID != "" {
		t.Fatalf("expected pending delete cleared, got %q", m.pendingDeleteID)
	}
}

func TestModelUpdate_ToggleRead(t *testing.T) {
	svc := &fakeService{}
	m := seededModel(svc, article.Article{ID: "1"})

	m, cmd := update(t, m, keyRune('m'))
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one toggle message, got %d", len(msgs))
	}
	m, _ = update(t, m, msgs[0])
	a := m.currentList()[0]
	if !a.Read || a.State != article.StateFinished {
		t.Fatalf("expected article marked read, got %+v", a)
	}
}

func TestModelUpdate_ActionErrorShowsWarning(t *testing.T) {
	svc := &fakeService{actionErr: errors.New("rate limited")}
	m := seededModel(svc, article.Article{ID: "1"})

	m, cmd := update(t, m, keyRune('l'))
	msgs := runCmd(cmd)
	m, _ = update(t, m, msgs[0])
	if m.err == nil || m.loading {
		t.Fatalf("expected warning after failed move, got err=%v loading=%v", m.err, m.loading)
	}
	if len(m.currentList()) != 1 {
		t.Fatal("expected row kept after failed move")
	}
}

func TestModelUpdate_ClearCacheRefreshes(t *testing.T) {
	svc := &fakeService{listed: map[article.Category][]article.Article{article.Inbox: {{ID: "n"}}}}
	m := seededModel(svc, article.Article{ID: "old"})

	m, cmd := update(t, m, keyRune('R'))
	msgs := runCmd(cmd)
	if _, ok := msgs[0].(tuiactions.ClearCacheSuccessMsg); !ok || !svc.cleared {
		t.Fatalf("expected cache cleared, got %T", msgs[0])
	}
	m, cmd = update(t, m, msgs[0])
	if len(m.currentList()) != 0 {
		t.Fatal("expected local listings dropped")
	}
	if cmd == nil {
		t.Fatal("expected refresh after clearing")
	}
}
