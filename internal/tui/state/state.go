package state

import "github.com/reuteras/rwreader/internal/article"

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

func PageStep(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 6
	if hasStatus {
		headerLines += 2
	}
	step := height - headerLines
	if step < 3 {
		step = 3
	}
	return step
}

func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

func IndexByID(articles []article.Article, id string) int {
	for i, a := range articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// RemoveByID returns articles without id, leaving the input untouched, and
// the index the row had (or -1).
func RemoveByID(articles []article.Article, id string) ([]article.Article, int) {
	idx := IndexByID(articles, id)
	if idx < 0 {
		return articles, -1
	}
	out := make([]article.Article, 0, len(articles)-1)
	out = append(out, articles[:idx]...)
	out = append(out, articles[idx+1:]...)
	return out, idx
}

// CursorAfterRemoval keeps the cursor on the row that slid into the removed
// row's place.
func CursorAfterRemoval(cursor, removedIdx, newSize int) int {
	if removedIdx >= 0 && removedIdx < cursor {
		cursor--
	}
	return ClampCursor(cursor, newSize)
}

// UnreadCount counts articles not yet marked read.
func UnreadCount(articles []article.Article) int {
	n := 0
	for _, a := range articles {
		if !a.Read {
			n++
		}
	}
	return n
}
