package article

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// epochMillisThreshold separates second and millisecond epochs.
const epochMillisThreshold = 1e10

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// FromDocument normalizes one raw service record. Unknown or malformed
// fields are ignored rather than rejected.
func FromDocument(doc map[string]any) Article {
	a := Article{Fields: make(map[string]string)}
	for k, v := range doc {
		if s, ok := v.(string); ok {
			a.Fields[k] = s
		}
	}

	a.ID = stringValue(doc["id"])
	a.Title = strings.TrimSpace(stringValue(doc["title"]))
	if a.Title == "" {
		a.Title = "Untitled"
	}
	a.URL = stringValue(doc["url"])
	a.SourceURL = stringValue(doc["source_url"])
	a.Author = stringValue(doc["author"])
	a.SiteName = stringValue(doc["site_name"])
	a.Summary = stringValue(doc["summary"])

	if n, ok := numberValue(doc["word_count"]); ok && n > 0 {
		a.WordCount = int(n)
	}
	a.CreatedAt, _ = ParseTimestamp(doc["created_at"])
	a.UpdatedAt, _ = ParseTimestamp(doc["updated_at"])
	a.PublishedDate, _ = ParseTimestamp(doc["published_date"])
	a.ReadingProgress = progressValue(doc["reading_progress"])

	switch strings.ToLower(stringValue(doc["location"])) {
	case "archive":
		a.Archived = true
	case "later":
		a.SavedForLater = true
	case "feed":
		a.InFeed = true
	}
	if b, ok := doc["archived"].(bool); ok {
		a.Archived = a.Archived || b
	}
	if b, ok := doc["saved_for_later"].(bool); ok {
		a.SavedForLater = a.SavedForLater || b
	}

	state := stringValue(doc["state"])
	read, hasRead := doc["read"].(bool)
	switch {
	case state == StateFinished:
		a.SetRead(true)
	case hasRead:
		a.SetRead(read)
	default:
		a.State = state
	}
	return a
}

// ParseTimestamp accepts ISO-8601 strings and Unix epochs in seconds or
// milliseconds, as numbers or numeric strings.
func ParseTimestamp(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	n, ok := numberValue(v)
	if !ok || n <= 0 {
		return time.Time{}, false
	}
	if n > epochMillisThreshold {
		n /= 1000
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

func numberValue(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// progressValue maps a 0..1 fraction or a 0..100 percentage to a clamped
// percentage.
func progressValue(v any) int {
	n, ok := numberValue(v)
	if !ok || n <= 0 {
		return 0
	}
	if n <= 1 {
		n *= 100
	}
	if n > 100 {
		n = 100
	}
	return int(math.Round(n))
}
