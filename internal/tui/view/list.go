package view

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/reuteras/rwreader/internal/article"
	tuitheme "github.com/reuteras/rwreader/internal/tui/theme"
)

var reANSICodes = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type ArticleLineParams struct {
	Article      article.Article
	Now          time.Time
	RelativeTime bool
	ShowSite     bool
	Active       bool
	Width        int
}

func RenderArticleLine(p ArticleLineParams, th tuitheme.Theme) string {
	added := p.Article.CreatedAt
	date := "----------"
	if !added.IsZero() {
		date = added.Local().Format(time.DateOnly)
	}
	if p.RelativeTime {
		date = RelativeTimeLabel(p.Now, added)
	}

	cursorMarker := " "
	if p.Active {
		cursorMarker = ">"
	}
	prefix := fmt.Sprintf("  %s %s ", cursorMarker, ReadMarker(p.Article))
	dateLabel := "[" + date + "]"
	available := p.Width - visibleLen(prefix) - 1 - visibleLen(dateLabel)
	if available < 1 {
		available = 1
	}

	label := ArticleLabel(p.Article, p.ShowSite)
	label = truncateRunes(label, available)
	styledTitle := th.StyleArticleTitle(p.Article, label)
	gap := p.Width - visibleLen(prefix) - visibleLen(label) - visibleLen(dateLabel)
	if gap < 1 {
		gap = 1
	}
	return th.RenderActiveLine(p.Active, prefix+styledTitle+strings.Repeat(" ", gap)+dateLabel)
}

// ReadMarker is a one-cell read indicator: blank when read, a dot when
// unread and a half circle when partly read.
func ReadMarker(a article.Article) string {
	switch {
	case a.Read:
		return " "
	case a.ReadingProgress > 0:
		return "◐"
	default:
		return "•"
	}
}

func ArticleLabel(a article.Article, showSite bool) string {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Untitled"
	}
	if !showSite {
		return title
	}
	site := strings.TrimSpace(a.SiteName)
	if site == "" {
		site = strings.TrimSpace(a.Author)
	}
	if site == "" {
		return title
	}
	return title + " · " + site
}

func RelativeTimeLabel(now, then time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if then.IsZero() {
		return "unknown"
	}
	if then.After(now) {
		return "just now"
	}
	d := now.Sub(then)
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", n)
	}
	if d < 24*time.Hour {
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", n)
	}
	n := int(d / (24 * time.Hour))
	if n == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", n)
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return strings.Repeat(".", maxLen)
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func visibleLen(s string) int {
	return utf8.RuneCountInString(stripANSIText(s))
}

func stripANSIText(s string) string {
	return reANSICodes.ReplaceAllString(s, "")
}
