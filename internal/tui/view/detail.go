package view

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	minWrap = 20
	maxWrap = 120
)

// MarkdownRenderer turns the formatter's Markdown into terminal output. A
// glamour renderer is built per wrap width and reused.
type MarkdownRenderer struct {
	style     string
	width     int
	renderer  *glamour.TermRenderer
	lastError error
}

func NewMarkdownRenderer(style string) *MarkdownRenderer {
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{style: style}
}

// WrapWidth picks the wrap width for a viewport of width columns, capped by
// the configured preference (0 means no preference).
func WrapWidth(width, preferred int) int {
	w := width - 4
	if preferred > 0 && preferred < w {
		w = preferred
	}
	if w > maxWrap {
		w = maxWrap
	}
	if w < minWrap {
		w = minWrap
	}
	return w
}

// Render returns the styled document. When glamour cannot render it the
// Markdown source is returned as is.
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	if err := r.ensure(width); err != nil {
		r.lastError = err
		return markdown
	}
	out, err := r.renderer.Render(markdown)
	if err != nil {
		r.lastError = err
		return markdown
	}
	r.lastError = nil
	return strings.TrimRight(out, "\n") + "\n"
}

func (r *MarkdownRenderer) Err() error {
	return r.lastError
}

func (r *MarkdownRenderer) ensure(width int) error {
	if r.renderer != nil && r.width == width {
		return nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return err
	}
	r.renderer = tr
	r.width = width
	return nil
}
