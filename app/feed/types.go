package feed

import (
	"errors"
	"fmt"
	"time"
)

// DateKeyLayout is the layout of brief date keys (e.g. 20240301).
const DateKeyLayout = "20060102"

// DefaultMaxEntries caps the feed when no explicit cap is given.
const DefaultMaxEntries = 50

var ErrParse = errors.New("malformed feed document")

type Channel struct {
	ID          string
	Title       string
	Link        string
	Description string
	Language    string
}

// Entry is a single feed item. Entries are values; the aggregator replaces
// them wholesale and never edits fields in place.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Content     string // rendered HTML, written escaped into <description>
	PublishedAt time.Time
	UpdatedAt   time.Time
}

// DateKey returns the trailing path segment of the GUID.
func (e Entry) DateKey() string {
	return dateKeyFromGUID(e.GUID)
}

type Document struct {
	Channel       Channel
	Entries       []Entry
	LastBuildDate time.Time
}

// Brief is one day's summarized content.
type Brief struct {
	DateKey string
	Body    string // markdown
}

// ParseDateKey returns midnight UTC of the given date key.
func ParseDateKey(key string) (time.Time, error) {
	if len(key) != len(DateKeyLayout) {
		return time.Time{}, fmt.Errorf("invalid date key %q", key)
	}
	t, err := time.ParseInLocation(DateKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// DateKeyFor formats t as a date key in loc.
func DateKeyFor(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateKeyLayout)
}

func dateKeyFromGUID(guid string) string {
	for i := len(guid) - 1; i >= 0; i-- {
		if guid[i] == '/' {
			return guid[i+1:]
		}
	}
	return guid
}
