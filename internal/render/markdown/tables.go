package markdown

import (
	"strings"

	nethtml "golang.org/x/net/html"
)

// renderTable emits a pipe table. The first row is always the header row,
// since Markdown tables cannot be headless.
func renderTable(tableNode *nethtml.Node, r renderer) []string {
	rows := tableRows(tableNode, r)
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	lines := make([]string, 0, len(rows)+1)
	for i, row := range rows {
		cells := make([]string, cols)
		copy(cells, row)
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if i == 0 {
			sep := make([]string, cols)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return lines
}

func tableRows(tableNode *nethtml.Node, r renderer) [][]string {
	rows := make([][]string, 0, 8)
	var walk func(*nethtml.Node)
	walk = func(node *nethtml.Node) {
		if node == nil {
			return
		}
		if node.Type == nethtml.ElementNode {
			switch strings.ToLower(node.Data) {
			case "table":
				if node != tableNode {
					return
				}
			case "tr":
				if row := tableRow(node, r); len(row) > 0 {
					rows = append(rows, row)
				}
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tableNode)
	return rows
}

func tableRow(tr *nethtml.Node, r renderer) []string {
	row := make([]string, 0, 4)
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != nethtml.ElementNode {
			continue
		}
		tag := strings.ToLower(c.Data)
		if tag != "th" && tag != "td" {
			continue
		}
		cell := singleLine(r.renderInlineChildren(c))
		row = append(row, strings.ReplaceAll(cell, "|", `\|`))
	}
	return row
}
