package markdown

import (
	"strings"

	nethtml "golang.org/x/net/html"
)

func (r renderer) renderInlineChildren(node *nethtml.Node) string {
	parts := make([]string, 0, 4)
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		parts = append(parts, r.renderInlineNode(child))
	}
	return strings.Join(parts, "")
}

func (r renderer) renderInlineNode(node *nethtml.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case nethtml.TextNode:
		return reSpaceRun.ReplaceAllString(node.Data, " ")
	case nethtml.ElementNode:
		tag := strings.ToLower(node.Data)
		switch tag {
		case "script", "style", "noscript", "template":
			return ""
		case "img":
			return imagePlaceholder(nodeAttr(node, "alt"))
		case "br":
			return "\n"
		case "a":
			return r.renderLink(node)
		case "strong", "b":
			return emphasize("**", r.renderInlineChildren(node))
		case "em", "i", "cite":
			return emphasize("*", r.renderInlineChildren(node))
		case "del", "s", "strike":
			return emphasize("~~", r.renderInlineChildren(node))
		case "q":
			text := singleLine(r.renderInlineChildren(node))
			if text == "" {
				return ""
			}
			return `"` + text + `"`
		case "code", "kbd", "samp", "tt":
			text := strings.Join(strings.Fields(collectRawText(node)), " ")
			if text == "" {
				return ""
			}
			tick := "`"
			if strings.Contains(text, "`") {
				tick = "``"
			}
			return tick + text + tick
		default:
			return r.renderInlineChildren(node)
		}
	default:
		return ""
	}
}

func (r renderer) renderLink(node *nethtml.Node) string {
	text := singleLine(r.renderInlineChildren(node))
	href := strings.TrimSpace(nodeAttr(node, "href"))
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		href = ""
	}
	switch {
	case href == "":
		return text
	case text == "":
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			return "<" + href + ">"
		}
		return ""
	case text == href:
		return "<" + href + ">"
	default:
		return "[" + text + "](" + escapeLinkTarget(href) + ")"
	}
}

func escapeLinkTarget(href string) string {
	return strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(href)
}

// emphasize wraps inner in marker, keeping surrounding whitespace outside
// the markers so the emphasis stays valid Markdown.
func emphasize(marker, inner string) string {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return inner
	}
	lead, trail := "", ""
	if strings.HasPrefix(inner, " ") {
		lead = " "
	}
	if strings.HasSuffix(inner, " ") {
		trail = " "
	}
	if strings.Contains(trimmed, "\n") {
		return lead + trimmed + trail
	}
	return lead + marker + trimmed + marker + trail
}

var punctuationFixer = strings.NewReplacer(
	" .", ".",
	" ,", ",",
	" ;", ";",
	" !", "!",
	" ?", "?",
	" )", ")",
	"( ", "(",
)

// normalizeInlineText collapses whitespace inside each line and drops empty
// lines. Line breaks only come from <br>.
func normalizeInlineText(s string) string {
	parts := strings.Split(s, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Join(strings.Fields(part), " ")
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return punctuationFixer.Replace(strings.Join(out, "\n"))
}
