package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/reuteras/rwreader/internal/article"
	tuiactions "github.com/reuteras/rwreader/internal/tui/actions"
	"github.com/reuteras/rwreader/internal/tui/platform"
	tuistate "github.com/reuteras/rwreader/internal/tui/state"
	tuitheme "github.com/reuteras/rwreader/internal/tui/theme"
	"github.com/reuteras/rwreader/internal/tui/view"
)

type Service = tuiactions.Service

const (
	sourceSnapshot = "snapshot"
	sourceReadwise = "readwise"
	sourceCache    = "cache"

	// Rows used by the title, tabs, toolbar, spacing, message and footer.
	chromeLines = 7
)

type clearStatusMsg struct {
	id int
}

type Options struct {
	ShowFeed       bool
	MarkReadOnOpen bool
	WordWrap       int
	RelativeTime   bool
	Theme          tuitheme.Theme
}

type Model struct {
	service    Service
	theme      tuitheme.Theme
	categories []article.Category
	active     article.Category

	lists   map[article.Category][]article.Article
	fresh   map[article.Category]bool
	sources map[article.Category]string
	cursors map[article.Category]int
	savedAt map[article.Category]time.Time

	markReadOnOpen bool
	relativeTime   bool
	wordWrap       int

	showHelp        bool
	inDetail        bool
	detailID        string
	detailMarkdown  string
	detailLoading   bool
	viewport        viewport.Model
	markdown        *view.MarkdownRenderer
	pendingDeleteID string

	width    int
	height   int
	loading  bool
	status   string
	statusID int
	err      error

	openURLFn func(string) error
	copyURLFn func(string) error
	nowFn     func() time.Time
}

func NewModel(service Service, opts Options) Model {
	categories := []article.Category{article.Inbox, article.Later, article.Archive}
	if opts.ShowFeed {
		categories = append(categories, article.Feed)
	}
	th := opts.Theme
	if th.Glamour == "" {
		th = tuitheme.Default()
	}
	return Model{
		service:        service,
		theme:          th,
		categories:     categories,
		active:         article.Inbox,
		lists:          make(map[article.Category][]article.Article),
		fresh:          make(map[article.Category]bool),
		sources:        make(map[article.Category]string),
		cursors:        make(map[article.Category]int),
		savedAt:        make(map[article.Category]time.Time),
		markReadOnOpen: opts.MarkReadOnOpen,
		relativeTime:   opts.RelativeTime,
		wordWrap:       opts.WordWrap,
		viewport:       viewport.New(80, 20),
		markdown:       view.NewMarkdownRenderer(th.Glamour),
		openURLFn:      platform.OpenURLInBrowser,
		copyURLFn:      platform.CopyURLToClipboard,
		nowFn:          time.Now,
	}
}

// SeedCategory shows articles for c before anything has been fetched.
func (m *Model) SeedCategory(c article.Category, articles []article.Article) {
	m.lists[c] = append([]article.Article(nil), articles...)
	m.sources[c] = sourceSnapshot
}

func (m Model) Init() tea.Cmd {
	if m.service == nil {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(m.categories)+1)
	for _, c := range m.categories {
		if _, seeded := m.lists[c]; !seeded {
			cmds = append(cmds, tuiactions.LoadSnapshotCmd(m.service, c, 0))
		}
	}
	cmds = append(cmds, tuiactions.RefreshCmd(m.service, m.active, false, "init"))
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tuiactions.SnapshotLoadSuccessMsg:
		if m.fresh[msg.Category] || len(msg.Articles) == 0 {
			return m, nil
		}
		m.replaceList(msg.Category, msg.Articles, sourceSnapshot)
		m.savedAt[msg.Category] = msg.SavedAt
		return m, nil
	case tuiactions.SnapshotLoadErrorMsg:
		m.err = msg.Err
		return m, nil
	case tuiactions.RefreshSuccessMsg:
		m.loading = false
		m.err = nil
		m.fresh[msg.Category] = true
		m.replaceList(msg.Category, msg.Articles, sourceReadwise)
		if msg.Source == "manual" || msg.Source == "reset" {
			m.status = fmt.Sprintf("Loaded %d articles in %s", len(msg.Articles), msg.Category.Label())
			cmd := m.clearStatusLater(3 * time.Second)
			return m, cmd
		}
		return m, nil
	case tuiactions.RefreshErrorMsg:
		m.loading = false
		m.status = ""
		m.err = msg.Err
		if len(msg.Articles) > 0 {
			m.replaceList(msg.Category, msg.Articles, sourceCache)
		}
		return m, nil
	case tuiactions.DocumentLoadSuccessMsg:
		if msg.ID != m.detailID {
			return m, nil
		}
		m.detailLoading = false
		m.err = nil
		m.detailMarkdown = msg.Markdown
		m.updateArticle(msg.ID, func(a *article.Article) {
			a.Read = msg.Article.Read
			a.State = msg.Article.State
			a.ReadingProgress = msg.Article.ReadingProgress
		})
		m.renderDetail()
		m.viewport.GotoTop()
		return m, nil
	case tuiactions.DocumentLoadErrorMsg:
		if msg.ID != m.detailID {
			return m, nil
		}
		m.detailLoading = false
		m.err = msg.Err
		m.detailMarkdown = ""
		m.viewport.SetContent("Could not load this article.\n")
		return m, nil
	case tuiactions.MoveSuccessMsg:
		m.loading = false
		m.err = nil
		m.status = msg.Status
		m.removeArticle(msg.ID)
		// The library dropped every listing; refetch destinations on demand.
		for c := range m.fresh {
			m.fresh[c] = false
		}
		cmd := m.clearStatusLater(3 * time.Second)
		return m, cmd
	case tuiactions.ToggleReadSuccessMsg:
		m.loading = false
		m.err = nil
		m.status = msg.Status
		m.updateArticle(msg.ID, func(a *article.Article) { a.SetRead(msg.NextRead) })
		cmd := m.clearStatusLater(3 * time.Second)
		return m, cmd
	case tuiactions.DeleteSuccessMsg:
		m.loading = false
		m.err = nil
		m.status = msg.Status
		m.pendingDeleteID = ""
		m.removeArticle(msg.ID)
		for c := range m.fresh {
			m.fresh[c] = false
		}
		cmd := m.clearStatusLater(3 * time.Second)
		return m, cmd
	case tuiactions.ArticleActionErrorMsg:
		m.loading = false
		m.status = ""
		m.err = msg.Err
		return m, nil
	case tuiactions.ClearCacheSuccessMsg:
		m.lists = make(map[article.Category][]article.Article)
		m.fresh = make(map[article.Category]bool)
		m.sources = make(map[article.Category]string)
		m.cursors = make(map[article.Category]int)
		m.savedAt = make(map[article.Category]time.Time)
		m.status = msg.Status
		m.err = nil
		if m.service == nil {
			m.loading = false
			return m, nil
		}
		m.loading = true
		return m, tuiactions.RefreshCmd(m.service, m.active, true, "reset")
	case tuiactions.ClearCacheErrorMsg:
		m.loading = false
		m.err = msg.Err
		return m, nil
	case tuiactions.OpenURLSuccessMsg:
		m.err = nil
		m.status = msg.Status
		if msg.Opened && !msg.ReadWas && m.markReadOnOpen && m.service != nil && msg.ID != "" {
			clearCmd := m.clearStatusLater(3 * time.Second)
			return m, tea.Batch(tuiactions.ToggleReadCmd(m.service, msg.ID, false), clearCmd)
		}
		cmd := m.clearStatusLater(3 * time.Second)
		return m, cmd
	case tuiactions.OpenURLErrorMsg:
		m.err = nil
		m.status = msg.Err.Error()
		cmd := m.clearStatusLater(4 * time.Second)
		return m, cmd
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "D" {
		m.pendingDeleteID = ""
	}

	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}

	if m.showHelp {
		switch key {
		case "esc":
			m.showHelp = false
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.inDetail {
		return m.handleDetailKey(msg)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "1", "2", "3", "4":
		idx := int(key[0] - '1')
		if idx >= len(m.categories) {
			return m, nil
		}
		return m.switchCategory(m.categories[idx])
	case "tab":
		return m.switchCategory(m.categories[(m.categoryIndex()+1)%len(m.categories)])
	case "shift+tab":
		return m.switchCategory(m.categories[(m.categoryIndex()+len(m.categories)-1)%len(m.categories)])
	case "up", "k":
		m.moveCursorBy(-1)
		return m, nil
	case "down", "j":
		m.moveCursorBy(1)
		return m, nil
	case "pgup", "ctrl+b":
		m.moveCursorBy(-tuistate.PageStep(m.height, m.status != "" || m.err != nil))
		return m, nil
	case "pgdown", "ctrl+f":
		m.moveCursorBy(tuistate.PageStep(m.height, m.status != "" || m.err != nil))
		return m, nil
	case "g":
		m.cursors[m.active] = 0
		return m, nil
	case "G":
		m.cursors[m.active] = tuistate.ClampCursor(len(m.currentList())-1, len(m.currentList()))
		return m, nil
	case "enter":
		a, ok := m.currentArticle()
		if !ok {
			return m, nil
		}
		return m.openDetail(a)
	case "r":
		return m.refresh(true, "manual")
	case "R":
		if m.service == nil {
			return m, nil
		}
		m.loading = true
		m.status = "Clearing caches"
		m.err = nil
		return m, tuiactions.ClearCacheCmd(m.service)
	}

	a, ok := m.currentArticle()
	if !ok {
		return m, nil
	}
	return m.articleAction(key, a)
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.closeDetail()
		return m, nil
	case "[", "]":
		list := m.currentList()
		idx := tuistate.IndexByID(list, m.detailID)
		if idx < 0 {
			return m, nil
		}
		if key == "[" {
			idx--
		} else {
			idx++
		}
		if idx < 0 || idx >= len(list) {
			return m, nil
		}
		m.cursors[m.active] = idx
		return m.openDetail(list[idx])
	}

	if a, ok := m.detailArticle(); ok {
		switch key {
		case "a", "l", "i", "m", "D", "o", "y":
			return m.articleAction(key, a)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) articleAction(key string, a article.Article) (tea.Model, tea.Cmd) {
	switch key {
	case "a":
		return m.move(a, article.Archive)
	case "l":
		return m.move(a, article.Later)
	case "i":
		return m.move(a, article.Inbox)
	case "m":
		if m.service == nil {
			return m, nil
		}
		m.loading = true
		m.status = ""
		m.err = nil
		return m, tuiactions.ToggleReadCmd(m.service, a.ID, a.Read)
	case "D":
		if m.service == nil {
			return m, nil
		}
		if m.pendingDeleteID != a.ID {
			m.pendingDeleteID = a.ID
			m.status = "Press D again to delete this article"
			cmd := m.clearStatusLater(4 * time.Second)
			return m, cmd
		}
		m.pendingDeleteID = ""
		m.loading = true
		m.status = ""
		m.err = nil
		return m, tuiactions.DeleteCmd(m.service, a.ID)
	case "o":
		return m, tuiactions.OpenURLCmd(a.ID, a.Read, a.OriginURL(), m.openURLFn, m.copyURLFn)
	case "y":
		return m, tuiactions.CopyURLCmd(a.OriginURL(), m.copyURLFn)
	}
	return m, nil
}

func (m Model) move(a article.Article, dest article.Category) (tea.Model, tea.Cmd) {
	if m.service == nil {
		return m, nil
	}
	if a.Category() == dest {
		m.status = "Already in " + dest.Label()
		cmd := m.clearStatusLater(3 * time.Second)
		return m, cmd
	}
	m.loading = true
	m.status = ""
	m.err = nil
	return m, tuiactions.MoveCmd(m.service, a.ID, dest)
}

func (m Model) switchCategory(c article.Category) (tea.Model, tea.Cmd) {
	if c == m.active && m.fresh[c] {
		return m, nil
	}
	m.active = c
	m.status = ""
	m.err = nil
	if m.fresh[c] {
		return m, nil
	}
	return m.refresh(false, "switch")
}

func (m Model) refresh(force bool, source string) (tea.Model, tea.Cmd) {
	if m.service == nil {
		return m, nil
	}
	m.loading = true
	m.status = ""
	m.err = nil
	return m, tuiactions.RefreshCmd(m.service, m.active, force, source)
}

func (m Model) openDetail(a article.Article) (tea.Model, tea.Cmd) {
	m.inDetail = true
	m.detailID = a.ID
	m.detailMarkdown = ""
	m.viewport.SetContent("Loading article...\n")
	m.viewport.GotoTop()
	if m.service == nil {
		return m, nil
	}
	m.detailLoading = true
	cmds := []tea.Cmd{tuiactions.LoadDocumentCmd(m.service, a.ID)}
	if m.markReadOnOpen && !a.Read {
		cmds = append(cmds, tuiactions.ToggleReadCmd(m.service, a.ID, false))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) closeDetail() {
	m.inDetail = false
	m.detailID = ""
	m.detailMarkdown = ""
	m.detailLoading = false
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("rwreader"))
	b.WriteString("\n")
	b.WriteString(view.Tabs(m.active, m.categories, m.counts(), m.theme))
	b.WriteString("\n")

	switch {
	case m.showHelp:
		b.WriteString("Help (? to close)\n\n")
		b.WriteString(view.Help())
		b.WriteString("\n")
	case m.inDetail:
		b.WriteString(view.Toolbar(true))
		b.WriteString("\n\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	default:
		b.WriteString(view.Toolbar(false))
		b.WriteString("\n\n")
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) listView() string {
	list := m.currentList()
	if len(list) == 0 {
		if m.loading {
			return "Loading articles...\n"
		}
		return "No articles in " + m.active.Label() + ".\n"
	}
	cursor := tuistate.ClampCursor(m.cursors[m.active], len(list))
	height := m.height - chromeLines
	if m.height <= 0 {
		height = 0
	}
	start, end := tuistate.CenteredWindow(len(list), cursor, height)
	now := m.nowFn()
	width := m.width
	if width <= 0 {
		width = 100
	}
	return view.RenderListBody(view.ListRenderInput{
		Count:  len(list),
		Start:  start,
		End:    end,
		Cursor: cursor,
		RenderLine: func(i int, active bool) string {
			return view.RenderArticleLine(view.ArticleLineParams{
				Article:      list[i],
				Now:          now,
				RelativeTime: m.relativeTime,
				ShowSite:     true,
				Active:       active,
				Width:        width,
			}, m.theme)
		},
	})
}

func (m Model) messagePanel() string {
	warning := ""
	if m.err != nil {
		warning = m.err.Error()
	}
	return view.Message(m.loading || m.detailLoading, m.err != nil, m.status, warning, m.theme)
}

func (m Model) footer() string {
	mode := "list"
	if m.inDetail {
		mode = "detail"
	}
	list := m.currentList()
	source := m.sources[m.active]
	if saved := m.savedAt[m.active]; source == sourceSnapshot && !saved.IsZero() {
		source += " saved " + view.RelativeTimeLabel(m.nowFn(), saved)
	}
	return view.Footer(mode, m.active, len(list), tuistate.UnreadCount(list), source, m.theme)
}

func (m Model) counts() map[article.Category]int {
	out := make(map[article.Category]int, len(m.lists))
	for c, list := range m.lists {
		out[c] = len(list)
	}
	return out
}

func (m Model) categoryIndex() int {
	for i, c := range m.categories {
		if c == m.active {
			return i
		}
	}
	return 0
}

func (m Model) currentList() []article.Article {
	return m.lists[m.active]
}

func (m Model) currentArticle() (article.Article, bool) {
	list := m.currentList()
	if len(list) == 0 {
		return article.Article{}, false
	}
	return list[tuistate.ClampCursor(m.cursors[m.active], len(list))], true
}

func (m Model) detailArticle() (article.Article, bool) {
	for _, list := range m.lists {
		if idx := tuistate.IndexByID(list, m.detailID); idx >= 0 {
			return list[idx], true
		}
	}
	return article.Article{}, false
}

func (m *Model) moveCursorBy(delta int) {
	list := m.currentList()
	m.cursors[m.active] = tuistate.ClampCursor(m.cursors[m.active]+delta, len(list))
}

// replaceList swaps in a new listing for c, keeping the cursor on the same
// article when it is still present.
func (m *Model) replaceList(c article.Category, articles []article.Article, source string) {
	anchorID := ""
	if old := m.lists[c]; len(old) > 0 {
		anchorID = old[tuistate.ClampCursor(m.cursors[c], len(old))].ID
	}
	m.lists[c] = articles
	m.sources[c] = source
	if idx := tuistate.IndexByID(articles, anchorID); idx >= 0 {
		m.cursors[c] = idx
		return
	}
	m.cursors[c] = tuistate.ClampCursor(m.cursors[c], len(articles))
}

func (m *Model) removeArticle(id string) {
	for c, list := range m.lists {
		out, idx := tuistate.RemoveByID(list, id)
		if idx < 0 {
			continue
		}
		m.lists[c] = out
		m.cursors[c] = tuistate.CursorAfterRemoval(m.cursors[c], idx, len(out))
	}
	if m.detailID == id {
		m.closeDetail()
	}
}

func (m *Model) updateArticle(id string, fn func(*article.Article)) {
	for c, list := range m.lists {
		idx := tuistate.IndexByID(list, id)
		if idx < 0 {
			continue
		}
		updated := append([]article.Article(nil), list...)
		fn(&updated[idx])
		m.lists[c] = updated
	}
}

func (m *Model) resizeViewport() {
	height := m.height - chromeLines
	if height < 3 {
		height = 3
	}
	width := m.width
	if width < 20 {
		width = 20
	}
	m.viewport.Width = width
	m.viewport.Height = height
	if m.inDetail && m.detailMarkdown != "" {
		m.renderDetail()
	}
}

func (m *Model) renderDetail() {
	width := view.WrapWidth(m.viewport.Width, m.wordWrap)
	m.viewport.SetContent(m.markdown.Render(m.detailMarkdown, width))
	if err := m.markdown.Err(); err != nil {
		m.err = fmt.Errorf("render article: %w", err)
	}
}

func (m *Model) clearStatusLater(after time.Duration) tea.Cmd {
	m.statusID++
	id := m.statusID
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
