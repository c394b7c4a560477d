package markdown

import (
	"regexp"
	"strings"
)

var (
	reXMLDecl = regexp.MustCompile(`(?i)(<\?)?xml(\s+version=["'][^"']*["'])?\s+encoding=["'][^"']*["']\s*(\?>)?`)
	// Links whose text is only a symbol and whose target is a fragment,
	// such as heading permalinks and footnote back-references.
	reAnchorLink  = regexp.MustCompile(`\[\s*[#^¶§↩†*]?\s*\]\([^)\s]*#[^)\s]*\)`)
	reFenceLang   = regexp.MustCompile("^(\\s*`{3,})[ \\t]+(\\S+)\\s*$")
	reSetextH1    = regexp.MustCompile(`^\s*=+\s*$`)
	reSetextH2    = regexp.MustCompile(`^\s*-+\s*$`)
	reHeadingLine = regexp.MustCompile(`^#{1,6}\s`)
	reListItem    = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s`)
)

// postprocess tidies converted Markdown so it renders predictably.
func postprocess(md string) string {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = reXMLDecl.ReplaceAllString(md, "")
	md = reAnchorLink.ReplaceAllString(md, "")

	lines := strings.Split(md, "\n")
	lines = normalizeFences(lines)
	lines = trimHeadings(lines)
	lines = convertSetextHeadings(lines)
	lines = spaceBlocks(lines)
	lines = collapseBlankLines(lines)
	return strings.Join(trimBlankLines(lines), "\n")
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

func normalizeFences(lines []string) []string {
	for i, line := range lines {
		lines[i] = reFenceLang.ReplaceAllString(line, "${1}${2}")
	}
	return lines
}

// trimHeadings drops the whitespace a removed permalink leaves behind.
func trimHeadings(lines []string) []string {
	inFence := false
	for i, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
			continue
		}
		if !inFence && reHeadingLine.MatchString(line) {
			lines[i] = strings.TrimRight(line, " \t")
		}
	}
	return lines
}

// convertSetextHeadings turns "Title\n===" into "## Title" and
// "Title\n---" into "### Title".
func convertSetextHeadings(lines []string) []string {
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if !inFence && len(out) > 0 {
			prev := out[len(out)-1]
			if isSetextTitle(prev) {
				switch {
				case reSetextH1.MatchString(line):
					out[len(out)-1] = "## " + strings.TrimSpace(prev)
					continue
				case reSetextH2.MatchString(line):
					out[len(out)-1] = "### " + strings.TrimSpace(prev)
					continue
				}
			}
		}
		out = append(out, line)
	}
	return out
}

func isSetextTitle(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || isFenceLine(trimmed) {
		return false
	}
	if reHeadingLine.MatchString(trimmed) || reListItem.MatchString(line) {
		return false
	}
	switch trimmed[0] {
	case '>', '|':
		return false
	}
	return !reSetextH1.MatchString(trimmed) && !reSetextH2.MatchString(trimmed)
}

// spaceBlocks puts a blank line before and after every heading, list run
// and fenced code block.
func spaceBlocks(lines []string) []string {
	out := make([]string, 0, len(lines)+8)
	blankBefore := func() {
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
	}
	inFence := false
	inList := false
	needBlank := false
	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if inFence {
			out = append(out, line)
			if isFenceLine(line) {
				inFence = false
				needBlank = true
			}
			continue
		}
		if needBlank && !blank {
			blankBefore()
		}
		needBlank = false

		switch {
		case isFenceLine(line):
			blankBefore()
			inFence = true
			inList = false
		case reHeadingLine.MatchString(line):
			blankBefore()
			needBlank = true
			inList = false
		case reListItem.MatchString(line):
			if !inList {
				blankBefore()
			}
			inList = true
		case blank:
			inList = false
		case inList && strings.HasPrefix(line, " "):
			// continuation of the current item
		default:
			if inList {
				blankBefore()
			}
			inList = false
		}
		out = append(out, line)
	}
	return out
}

// collapseBlankLines reduces runs of blank lines outside code fences to a
// single blank line.
func collapseBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	inFence := false
	prevBlank := false
	for _, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
		}
		blank := !inFence && strings.TrimSpace(line) == ""
		if blank {
			if prevBlank {
				continue
			}
			line = ""
		}
		out = append(out, line)
		prevBlank = blank
	}
	return out
}
