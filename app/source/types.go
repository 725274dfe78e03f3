package source

import (
	"time"
)

// Item is one entry of the source feed.
type Item struct {
	Title       string
	Link        string
	Summary     string // plain text
	PublishedAt time.Time
}

// Article is a source item together with its extracted body.
type Article struct {
	Item
	Body string // plain text paragraphs, empty when extraction failed
}
