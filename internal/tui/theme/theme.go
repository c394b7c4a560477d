package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/reuteras/rwreader/internal/article"
)

type Theme struct {
	Title      lipgloss.Style
	TabActive  lipgloss.Style
	TabIdle    lipgloss.Style
	Count      lipgloss.Style
	ActiveLine lipgloss.Style
	MetaLabel  lipgloss.Style
	MetaValue  lipgloss.Style
	StateIdle  lipgloss.Style
	StateWarn  lipgloss.Style
	StateLoad  lipgloss.Style

	TitleUnread   lipgloss.Style
	TitleRead     lipgloss.Style
	TitleProgress lipgloss.Style

	// Glamour is the glamour standard style used for the reader view.
	Glamour string
}

func Default() Theme {
	return Dark()
}

// ForName maps the display.theme setting to a theme. "auto" asks lipgloss
// whether the terminal background is dark.
func ForName(name string) Theme {
	switch name {
	case "light":
		return Light()
	case "dark":
		return Dark()
	default:
		if lipgloss.HasDarkBackground() {
			return Dark()
		}
		return Light()
	}
}

func Dark() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpSubtext1 := lipgloss.Color("#bac2de")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Title:         lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		TabActive:     lipgloss.NewStyle().Bold(true).Foreground(cpLavender).Background(cpSurface0).Padding(0, 1),
		TabIdle:       lipgloss.NewStyle().Foreground(cpOverlay1).Padding(0, 1),
		Count:         lipgloss.NewStyle().Foreground(cpYellow).Bold(true),
		ActiveLine:    lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		MetaLabel:     lipgloss.NewStyle().Foreground(cpOverlay1),
		MetaValue:     lipgloss.NewStyle().Foreground(cpSubtext1),
		StateIdle:     lipgloss.NewStyle().Foreground(cpGreen),
		StateWarn:     lipgloss.NewStyle().Foreground(cpRed),
		StateLoad:     lipgloss.NewStyle().Foreground(cpPeach),
		TitleUnread:   lipgloss.NewStyle().Bold(true).Foreground(cpText),
		TitleRead:     lipgloss.NewStyle().Foreground(cpSubtext0),
		TitleProgress: lipgloss.NewStyle().Italic(true).Foreground(cpLavender),
		Glamour:       "dark",
	}
}

func Light() Theme {
	latMauve := lipgloss.Color("#8839ef")
	latRed := lipgloss.Color("#d20f39")
	latPeach := lipgloss.Color("#fe640b")
	latYellow := lipgloss.Color("#df8e1d")
	latGreen := lipgloss.Color("#40a02b")
	latLavender := lipgloss.Color("#7287fd")
	latText := lipgloss.Color("#4c4f69")
	latSubtext0 := lipgloss.Color("#6c6f85")
	latOverlay1 := lipgloss.Color("#8c8fa1")
	latSurface0 := lipgloss.Color("#ccd0da")

	return Theme{
		Title:         lipgloss.NewStyle().Bold(true).Foreground(latMauve),
		TabActive:     lipgloss.NewStyle().Bold(true).Foreground(latLavender).Background(latSurface0).Padding(0, 1),
		TabIdle:       lipgloss.NewStyle().Foreground(latOverlay1).Padding(0, 1),
		Count:         lipgloss.NewStyle().Foreground(latYellow).Bold(true),
		ActiveLine:    lipgloss.NewStyle().Background(latSurface0).Foreground(latText),
		MetaLabel:     lipgloss.NewStyle().Foreground(latOverlay1),
		MetaValue:     lipgloss.NewStyle().Foreground(latSubtext0),
		StateIdle:     lipgloss.NewStyle().Foreground(latGreen),
		StateWarn:     lipgloss.NewStyle().Foreground(latRed),
		StateLoad:     lipgloss.NewStyle().Foreground(latPeach),
		TitleUnread:   lipgloss.NewStyle().Bold(true).Foreground(latText),
		TitleRead:     lipgloss.NewStyle().Foreground(latSubtext0),
		TitleProgress: lipgloss.NewStyle().Italic(true).Foreground(latLavender),
		Glamour:       "light",
	}
}

// StyleArticleTitle styles unread, partly read and read titles apart.
func (t Theme) StyleArticleTitle(a article.Article, title string) string {
	if title == "" {
		return title
	}
	switch {
	case a.Read:
		return t.TitleRead.Render(title)
	case a.ReadingProgress > 0:
		return t.TitleProgress.Render(title)
	default:
		return t.TitleUnread.Render(title)
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
