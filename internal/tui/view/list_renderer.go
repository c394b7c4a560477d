package view

import "strings"

type ListRenderInput struct {
	Count  int
	Start  int
	End    int
	Cursor int

	RenderLine func(index int, active bool) string
}

func RenderListBody(in ListRenderInput) string {
	if in.Count == 0 || in.Start >= in.End || in.Start < 0 {
		return ""
	}
	end := in.End
	if end > in.Count {
		end = in.Count
	}
	var b strings.Builder
	for i := in.Start; i < end; i++ {
		b.WriteString(in.RenderLine(i, i == in.Cursor))
		b.WriteString("\n")
	}
	return b.String()
}
