// Package markdown converts third-party article HTML into Markdown for the
// detail view. Conversion never fails: each stage that cannot produce
// readable output hands over to a simpler fallback.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

const (
	NoContentMessage = "*No content available.*"

	extractedTextPrefix = "*The article could not be converted cleanly. Showing extracted text.*"
	rawHTMLPrefix       = "*The article could not be converted. Showing the original HTML.*"

	// Output shorter than this is considered a failed conversion.
	minConvertedLen = 20
	// Tag-stripped text shorter than this is not worth showing on its own.
	minExtractedLen = 50
)

var (
	reTagLike  = regexp.MustCompile(`<[A-Za-z][^>]*>`)
	reAnyTag   = regexp.MustCompile(`(?s)<[^>]*>`)
	reSpaceRun = regexp.MustCompile(`\s+`)
)

type ImageMode int

const (
	ImageModePlaceholder ImageMode = iota
	ImageModeNone
)

type Options struct {
	// ArticleURL selects per-site cleanup rules. Empty disables them.
	ArticleURL string
	ImageMode  ImageMode
}

var DefaultOptions = Options{ImageMode: ImageModePlaceholder}

func withDefaults(opts Options) Options {
	out := opts
	if out.ImageMode != ImageModePlaceholder && out.ImageMode != ImageModeNone {
		out.ImageMode = DefaultOptions.ImageMode
	}
	out.ArticleURL = strings.TrimSpace(out.ArticleURL)
	return out
}

func Render(raw string) string {
	return RenderWithOptions(raw, DefaultOptions)
}

func RenderWithURL(raw, articleURL string) string {
	opts := DefaultOptions
	opts.ArticleURL = articleURL
	return RenderWithOptions(raw, opts)
}

// RenderWithOptions converts raw HTML or plain text to Markdown. Input
// without anything that looks like a tag is returned unchanged.
func RenderWithOptions(raw string, opts Options) (out string) {
	if strings.TrimSpace(raw) == "" {
		return NoContentMessage
	}
	if !reTagLike.MatchString(raw) {
		return raw
	}
	defer func() {
		if r := recover(); r != nil {
			out = strippedFallback(raw)
		}
	}()

	opts = withDefaults(opts)
	body, err := parseBody(raw, opts)
	if err != nil {
		return strippedFallback(raw)
	}

	md, ok := safely(func() string { return convert(body, opts) })
	if !ok {
		md, ok = safely(func() string { return plainText(body) })
		if !ok {
			md = raw
		}
	}
	if runeLen(md) < minConvertedLen {
		if text, ok := safely(func() string { return plainText(body) }); ok {
			md = text
		}
		if runeLen(md) < minConvertedLen {
			return fencedHTML(raw)
		}
	}
	if out := postprocess(md); strings.TrimSpace(out) != "" {
		return out
	}
	return fencedHTML(raw)
}

// parseBody parses raw with goquery and rewrites the tree for conversion:
// non-content elements are dropped, images become text placeholders and
// code blocks are tagged with their language.
func parseBody(raw string, opts Options) (*nethtml.Node, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template, head").Remove()

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if opts.ImageMode == ImageModeNone {
			img.Remove()
			return
		}
		alt, _ := img.Attr("alt")
		img.ReplaceWithNodes(&nethtml.Node{Type: nethtml.TextNode, Data: imagePlaceholder(alt)})
	})

	doc.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		if lang := codeLanguage(pre.ChildrenFiltered("code").First()); lang != "" {
			pre.SetAttr(fenceLangAttr, lang)
		}
	})

	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("parse html: empty document")
	}
	body := findBodyNode(doc.Nodes[0])
	if body == nil {
		return nil, fmt.Errorf("parse html: no body")
	}
	return body, nil
}

const fenceLangAttr = "data-rwreader-lang"

func codeLanguage(code *goquery.Selection) string {
	if code.Length() == 0 {
		return ""
	}
	class, _ := code.Attr("class")
	for _, c := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok && lang != "" {
			return lang
		}
	}
	return ""
}

func imagePlaceholder(alt string) string {
	alt = strings.Join(strings.Fields(alt), " ")
	if alt == "" {
		alt = "No description"
	}
	return "[Image: " + alt + "]"
}

func convert(body *nethtml.Node, opts Options) string {
	lines := renderer{}.renderNodes(children(body))
	if opts.ArticleURL != "" {
		lines = applyReaderPostprocessing(lines, opts.ArticleURL)
	}
	return strings.Join(lines, "\n")
}

// plainText extracts visible text with one paragraph per block element.
func plainText(node *nethtml.Node) string {
	paragraphs := make([]string, 0, 8)
	var cur strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(cur.String()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
		cur.Reset()
	}
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch n.Type {
		case nethtml.TextNode:
			cur.WriteString(n.Data)
			return
		case nethtml.ElementNode:
			tag := strings.ToLower(n.Data)
			if isSkippedElement(tag) {
				return
			}
			if tag == "br" {
				cur.WriteByte(' ')
				return
			}
			block := isBlockElement(tag)
			if block {
				flush()
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			if block {
				flush()
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	flush()
	return strings.Join(paragraphs, "\n\n")
}

// strippedFallback is the last resort when the HTML cannot be walked at
// all.
func strippedFallback(raw string) string {
	text := reAnyTag.ReplaceAllString(raw, " ")
	text = strings.TrimSpace(reSpaceRun.ReplaceAllString(nethtml.UnescapeString(text), " "))
	if runeLen(text) < minExtractedLen {
		return rawHTMLPrefix + "\n\n" + fencedHTML(raw)
	}
	return extractedTextPrefix + "\n\n" + text
}

func fencedHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	fence := fenceFor(raw)
	return fence + "html\n" + raw + "\n" + fence
}

// fenceFor returns a backtick fence longer than any run inside s.
func fenceFor(s string) string {
	fence := "```"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	return fence
}

func safely(fn func() string) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()
	return fn(), true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func trimBlankLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines) - 1
	for end >= start && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	if end < start {
		return nil
	}
	return lines[start : end+1]
}

func findBodyNode(node *nethtml.Node) *nethtml.Node {
	if node == nil {
		return nil
	}
	if node.Type == nethtml.ElementNode && strings.EqualFold(node.Data, "body") {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findBodyNode(child); found != nil {
			return found
		}
	}
	return nil
}

func children(node *nethtml.Node) []*nethtml.Node {
	out := make([]*nethtml.Node, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

func nodeAttr(node *nethtml.Node, name string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, name) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func collectRawText(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == nethtml.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(collectRawText(child))
	}
	return b.String()
}
