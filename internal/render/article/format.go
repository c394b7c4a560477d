// Package article formats a normalized article as a Markdown document for
// the detail view and the show command.
package article

import (
	"fmt"
	"strings"
	"time"

	model "github.com/reuteras/rwreader/internal/article"
	"github.com/reuteras/rwreader/internal/render/markdown"
)

const (
	noContentBody = markdown.NoContentMessage
	ErrorDocument = "# Error\n\nError formatting content."

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var markdownEscaper = strings.NewReplacer(
	`[`, `\[`,
	`]`, `\]`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`#`, `\#`,
)

type Options struct {
	Strategies []ContentStrategy
	// HideImages drops images instead of leaving a placeholder line.
	HideImages bool
}

func DefaultOptions() Options {
	return Options{Strategies: DefaultStrategies}
}

// Format renders a with the default content strategies.
func Format(a model.Article) string {
	return FormatWithOptions(a, DefaultOptions())
}

// FormatWith renders a header, a separator and the body. It never panics;
// any failure yields ErrorDocument.
func FormatWith(a model.Article, strategies []ContentStrategy) string {
	return FormatWithOptions(a, Options{Strategies: strategies})
}

func FormatWithOptions(a model.Article, opts Options) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ErrorDocument
		}
	}()

	var b strings.Builder
	writeHeader(&b, a)
	b.WriteString("\n---\n\n")
	b.WriteString(body(a, opts))
	b.WriteString("\n")
	return b.String()
}

// body resolves and converts the article body.
func body(a model.Article, opts Options) string {
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	c := ResolveContent(a, strategies)
	if !c.HTML {
		return strings.TrimSpace(c.Text)
	}
	mdOpts := markdown.DefaultOptions
	mdOpts.ArticleURL = a.OriginURL()
	if opts.HideImages {
		mdOpts.ImageMode = markdown.ImageModeNone
	}
	return markdown.RenderWithOptions(c.Text, mdOpts)
}

func writeHeader(b *strings.Builder, a model.Article) {
	fmt.Fprintf(b, "# %s\n\n", escape(a.Title))

	meta := make([]string, 0, 8)
	add := func(label, value string) {
		if value != "" {
			meta = append(meta, label+": "+value)
		}
	}
	add("Author", escape(a.Author))
	add("Site", escape(a.SiteName))
	add("Published", formatTime(a.PublishedDate, dateLayout))
	added := formatTime(a.CreatedAt, dateTimeLayout)
	add("Added", added)
	if updated := formatTime(a.UpdatedAt, dateTimeLayout); updated != added {
		add("Updated", updated)
	}
	if a.WordCount > 0 {
		add("Words", fmt.Sprintf("%d", a.WordCount))
	}
	add("Category", a.Category().Label())
	if a.ReadingProgress > 0 {
		add("Progress", fmt.Sprintf("%d%%", a.ReadingProgress))
	}
	if a.Read {
		add("Status", "Read")
	}
	for _, line := range meta {
		b.WriteString("- " + line + "\n")
	}

	if u := a.OriginURL(); u != "" {
		fmt.Fprintf(b, "\n[Original article](%s)\n", linkTarget(u))
	}
	if summary := strings.TrimSpace(a.Summary); summary != "" {
		fmt.Fprintf(b, "\n> %s\n", escape(strings.Join(strings.Fields(summary), " ")))
	}
}

func escape(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(layout)
}

func linkTarget(u string) string {
	return strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(u)
}
