package article

import (
	"sort"
	"strings"
	"unicode/utf8"

	model "github.com/reuteras/rwreader/internal/article"
)

// Content is the body chosen for display.
type Content struct {
	// Strategy names the strategy that produced the body.
	Strategy string
	// Field is the raw field the body came from, empty for the placeholder.
	Field string
	Text  string
	HTML  bool
}

// ContentStrategy extracts a body from an article, or reports that it
// found none.
type ContentStrategy struct {
	Name    string
	Extract func(a model.Article) (Content, bool)
}

var (
	htmlContentFields = []string{"html_content", "html", "content_html", "full_html"}
	textContentFields = []string{"content", "text", "full_text", "document", "body"}

	// metadataFields are never guessed to be the body.
	metadataFields = map[string]struct{}{
		"id": {}, "title": {}, "url": {}, "source_url": {}, "author": {}, "site_name": {},
		"summary": {}, "image_url": {}, "category": {}, "location": {}, "state": {},
		"created_at": {}, "updated_at": {}, "published_date": {}, "saved_at": {},
		"last_moved_at": {}, "first_opened_at": {}, "last_opened_at": {},
		"parent_id": {}, "notes": {}, "source": {}, "word_count": {}, "reading_time": {},
	}
)

const minGuessedBodyLen = 100

var (
	HTMLFieldsStrategy   = ContentStrategy{Name: "html-fields", Extract: firstPopulated(htmlContentFields)}
	TextFieldsStrategy   = ContentStrategy{Name: "text-fields", Extract: firstPopulated(textContentFields)}
	LongestFieldStrategy = ContentStrategy{Name: "longest-field", Extract: longestField}
	PlaceholderStrategy  = ContentStrategy{Name: "placeholder", Extract: placeholder}
)

// DefaultStrategies is the resolution order used by Format.
var DefaultStrategies = []ContentStrategy{
	HTMLFieldsStrategy,
	TextFieldsStrategy,
	LongestFieldStrategy,
	PlaceholderStrategy,
}

// ResolveContent runs strategies in order and returns the first hit. The
// placeholder is returned when none match.
func ResolveContent(a model.Article, strategies []ContentStrategy) Content {
	for _, s := range strategies {
		if s.Extract == nil {
			continue
		}
		if c, ok := s.Extract(a); ok {
			c.Strategy = s.Name
			return c
		}
	}
	c, _ := placeholder(a)
	c.Strategy = PlaceholderStrategy.Name
	return c
}

func firstPopulated(fields []string) func(model.Article) (Content, bool) {
	return func(a model.Article) (Content, bool) {
		for _, name := range fields {
			text := a.Field(name)
			if strings.TrimSpace(text) == "" {
				continue
			}
			return Content{Field: name, Text: text, HTML: looksLikeHTML(name, text)}, true
		}
		return Content{}, false
	}
}

func longestField(a model.Article) (Content, bool) {
	names := make([]string, 0, len(a.Fields))
	for name := range a.Fields {
		if _, skip := metadataFields[name]; skip {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestLen := "", minGuessedBodyLen
	for _, name := range names {
		if n := utf8.RuneCountInString(strings.TrimSpace(a.Fields[name])); n > bestLen {
			best, bestLen = name, n
		}
	}
	if best == "" {
		return Content{}, false
	}
	text := a.Fields[best]
	return Content{Field: best, Text: text, HTML: looksLikeHTML(best, text)}, true
}

func placeholder(model.Article) (Content, bool) {
	return Content{Text: noContentBody}, true
}

// looksLikeHTML decides whether a body needs conversion.
func looksLikeHTML(field, text string) bool {
	if strings.Contains(strings.ToLower(field), "html") {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "<") {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range []string{"<html", "<body", "<div", "<p>"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
