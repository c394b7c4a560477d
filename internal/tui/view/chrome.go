package view

import (
	"fmt"
	"strings"

	"github.com/reuteras/rwreader/internal/article"
	tuitheme "github.com/reuteras/rwreader/internal/tui/theme"
)

func Toolbar(inDetail bool) string {
	if inDetail {
		return "j/k scroll | [ ] prev/next | a/l/i move | m read | o open | y copy | D delete | esc back | ? help"
	}
	return "1-4 tabs | j/k move | enter read | a/l/i move | m read | D delete | o open | r refresh | R reset | ? help"
}

// Tabs renders the category switcher. counts holds the number of articles
// per category as last listed; categories that were never loaded show no
// count.
func Tabs(active article.Category, categories []article.Category, counts map[article.Category]int, th tuitheme.Theme) string {
	parts := make([]string, 0, len(categories))
	for i, c := range categories {
		label := fmt.Sprintf("%d %s", i+1, c.Label())
		if n, ok := counts[c]; ok {
			label += " " + th.Count.Render(fmt.Sprintf("%d", n))
		}
		if c == active {
			parts = append(parts, th.TabActive.Render(label))
		} else {
			parts = append(parts, th.TabIdle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func Footer(mode string, c article.Category, shown, unread int, source string, th tuitheme.Theme) string {
	parts := []string{
		th.MetaLabel.Render("mode") + " " + th.MetaValue.Render(mode),
		th.MetaLabel.Render("category") + " " + th.MetaValue.Render(c.Label()),
		th.MetaValue.Render(fmt.Sprintf("%d shown", shown)),
		th.MetaValue.Render(fmt.Sprintf("%d unread", unread)),
	}
	if source != "" {
		parts = append(parts, th.MetaLabel.Render("from")+" "+th.MetaValue.Render(source))
	}
	return strings.Join(parts, " • ")
}

func Message(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}

func Help() string {
	lines := []string{
		"Navigation:",
		"  j/k or arrows move, g/G jump top/bottom, pgup/pgdown jump page",
		"  1 inbox, 2 later, 3 archive, 4 feed, tab/shift+tab cycle",
		"Reading:",
		"  enter opens the reader view, esc/backspace returns to the list",
		"  [ and ] step to the previous/next article in the reader view",
		"Actions:",
		"  a archive, l later, i inbox, m toggle read, D delete (press twice)",
		"  o open in browser, y copy URL",
		"Sync:",
		"  r refresh current tab, R clear caches and refresh",
	}
	return strings.Join(lines, "\n")
}
