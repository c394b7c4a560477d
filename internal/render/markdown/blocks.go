package markdown

import (
	"strconv"
	"strings"

	nethtml "golang.org/x/net/html"
)

type renderer struct{}

// renderNodes renders a sequence of siblings. Runs of inline content become
// one paragraph; blocks are separated by a blank line.
func (r renderer) renderNodes(nodes []*nethtml.Node) []string {
	lines := make([]string, 0, len(nodes)*2)
	inlineParts := make([]string, 0, 4)
	appendBlock := func(block []string) {
		if len(block) == 0 {
			return
		}
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, "")
		}
		lines = append(lines, block...)
	}
	flushInline := func() {
		text := normalizeInlineText(strings.Join(inlineParts, ""))
		inlineParts = inlineParts[:0]
		if text == "" {
			return
		}
		appendBlock(strings.Split(text, "\n"))
	}

	for _, node := range nodes {
		if node.Type == nethtml.ElementNode && isBlockElement(node.Data) {
			flushInline()
			appendBlock(r.renderBlock(node))
			continue
		}
		inlineParts = append(inlineParts, r.renderInlineNode(node))
	}
	flushInline()
	return trimBlankLines(lines)
}

func (r renderer) renderBlock(node *nethtml.Node) []string {
	tag := strings.ToLower(node.Data)
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := singleLine(r.renderInlineChildren(node))
		if text == "" {
			return nil
		}
		return []string{strings.Repeat("#", int(tag[1]-'0')) + " " + text}
	case "p", "div", "section", "article", "main", "header", "footer", "aside", "nav", "figure":
		if hasBlockChild(node) {
			return r.renderNodes(children(node))
		}
		return r.renderParagraph(node)
	case "blockquote":
		inner := r.renderNodes(children(node))
		out := make([]string, 0, len(inner))
		for _, line := range inner {
			if strings.TrimSpace(line) == "" {
				out = append(out, ">")
				continue
			}
			out = append(out, "> "+line)
		}
		return out
	case "ul":
		return r.renderList(node, false, "")
	case "ol":
		return r.renderList(node, true, "")
	case "li":
		return r.renderListItem(node, "", "- ")
	case "table":
		return renderTable(node, r)
	case "figcaption", "caption":
		text := singleLine(r.renderInlineChildren(node))
		if text == "" {
			return nil
		}
		return []string{"*" + text + "*"}
	case "pre":
		return renderCodeBlock(node)
	case "hr":
		return []string{"---"}
	case "dl":
		return r.renderDefinitionList(node)
	default:
		if hasBlockChild(node) {
			return r.renderNodes(children(node))
		}
		return r.renderParagraph(node)
	}
}

func (r renderer) renderParagraph(node *nethtml.Node) []string {
	text := normalizeInlineText(r.renderInlineChildren(node))
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func renderCodeBlock(node *nethtml.Node) []string {
	text := strings.ReplaceAll(collectRawText(node), "\r\n", "\n")
	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	rawLines := strings.Split(text, "\n")
	fence := fenceFor(text)
	out := make([]string, 0, len(rawLines)+2)
	out = append(out, fence+nodeAttr(node, fenceLangAttr))
	for _, line := range rawLines {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return append(out, fence)
}

func (r renderer) renderDefinitionList(node *nethtml.Node) []string {
	lines := make([]string, 0, 8)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		text := singleLine(r.renderInlineChildren(child))
		if text == "" {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "dt":
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, "**"+text+"**")
		case "dd":
			lines = append(lines, text)
		}
	}
	return lines
}

func (r renderer) renderList(node *nethtml.Node, ordered bool, indent string) []string {
	lines := make([]string, 0, 16)
	itemIndex := 0
	if ordered {
		if start, err := strconv.Atoi(nodeAttr(node, "start")); err == nil {
			itemIndex = start - 1
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode || strings.ToLower(child.Data) != "li" {
			continue
		}
		itemIndex++
		marker := "- "
		if ordered {
			marker = strconv.Itoa(itemIndex) + ". "
		}
		lines = append(lines, r.renderListItem(child, indent, marker)...)
	}
	return lines
}

// renderListItem renders one item and its nested lists. Nested content is
// indented to the item's text column.
func (r renderer) renderListItem(node *nethtml.Node, indent, marker string) []string {
	restIndent := indent + strings.Repeat(" ", len(marker))
	lines := make([]string, 0, 4)

	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode {
			tag := strings.ToLower(child.Data)
			if tag == "ul" || tag == "ol" {
				continue
			}
			if isBlockElement(tag) {
				parts = append(parts, "\n", collectInline(r, child), "\n")
				continue
			}
		}
		parts = append(parts, r.renderInlineNode(child))
	}
	text := normalizeInlineText(strings.Join(parts, ""))
	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if i == 0 {
			lines = append(lines, indent+marker+line)
			continue
		}
		lines = append(lines, restIndent+line)
	}
	if len(lines) == 0 {
		lines = append(lines, strings.TrimRight(indent+marker, " "))
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			continue
		}
		switch strings.ToLower(child.Data) {
		case "ul":
			lines = append(lines, r.renderList(child, false, restIndent)...)
		case "ol":
			lines = append(lines, r.renderList(child, true, restIndent)...)
		}
	}
	return lines
}

// collectInline flattens a block nested inside a list item to inline text.
func collectInline(r renderer, node *nethtml.Node) string {
	if strings.EqualFold(node.Data, "pre") {
		return "`" + strings.Join(strings.Fields(collectRawText(node)), " ") + "`"
	}
	return r.renderInlineChildren(node)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(normalizeInlineText(s)), " ")
}

func isBlockElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6",
		"p", "div", "section", "article", "main", "header", "footer", "aside", "nav",
		"blockquote", "ul", "ol", "li", "table", "thead", "tbody", "tfoot", "tr", "td", "th",
		"dl", "dt", "dd", "pre", "figure", "figcaption", "caption", "hr":
		return true
	default:
		return false
	}
}

func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "head":
		return true
	default:
		return false
	}
}

func hasBlockChild(node *nethtml.Node) bool {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == nethtml.ElementNode && isBlockElement(child.Data) {
			return true
		}
	}
	return false
}
