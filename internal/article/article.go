// Package article holds the normalized document record shared by the
// listing buckets, the detail cache and the formatter.
package article

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	Inbox   Category = "inbox"
	Later   Category = "later"
	Archive Category = "archive"
	Feed    Category = "feed"
)

// Categories lists every category in display order.
var Categories = []Category{Inbox, Later, Archive, Feed}

// ParseCategory accepts category names and the service's location values.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbox", "new", "shortlist":
		return Inbox, nil
	case "later":
		return Later, nil
	case "archive":
		return Archive, nil
	case "feed":
		return Feed, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Location is the service-side value for the category.
func (c Category) Location() string {
	if c == Inbox {
		return "new"
	}
	return string(c)
}

func (c Category) Label() string {
	switch c {
	case Inbox:
		return "Inbox"
	case Later:
		return "Later"
	case Archive:
		return "Archive"
	case Feed:
		return "Feed"
	default:
		return string(c)
	}
}

const (
	StateReading  = "reading"
	StateFinished = "finished"
)

// Article is one document at summary or detail fidelity.
type Article struct {
	ID              string
	Title           string
	URL             string
	SourceURL       string
	Author          string
	SiteName        string
	WordCount       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PublishedDate   time.Time
	Summary         string
	ReadingProgress int

	Archived      bool
	SavedForLater bool
	// InFeed marks documents whose location is the feed. It never
	// overrides the archive/later flags.
	InFeed bool

	Read  bool
	State string

	// Fields keeps every string-valued field of the raw record, keyed by
	// its wire name. Body content lives here under whichever name the
	// service used.
	Fields map[string]string
}

// Category derives the category from the flags. Archived wins over
// SavedForLater when both are set.
func (a Article) Category() Category {
	switch {
	case a.Archived:
		return Archive
	case a.SavedForLater:
		return Later
	case a.InFeed:
		return Feed
	default:
		return Inbox
	}
}

// SetCategory rewrites the flags so Category returns c.
func (a *Article) SetCategory(c Category) {
	a.Archived = c == Archive
	a.SavedForLater = c == Later
	a.InFeed = c == Feed
}

// SetRead updates Read and State together.
func (a *Article) SetRead(read bool) {
	a.Read = read
	if read {
		a.State = StateFinished
	} else {
		a.State = StateReading
	}
}

// Field returns a raw string field, or "".
func (a Article) Field(name string) string {
	if a.Fields == nil {
		return ""
	}
	return a.Fields[name]
}

// Clone returns a copy that shares nothing mutable with a.
func (a Article) Clone() Article {
	out := a
	if a.Fields != nil {
		out.Fields = make(map[string]string, len(a.Fields))
		for k, v := range a.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// OriginURL prefers the original source over the service's reader URL.
func (a Article) OriginURL() string {
	if a.SourceURL != "" {
		return a.SourceURL
	}
	return a.URL
}
