package feed

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a stored feed document. Items without a GUID are dropped since
// they cannot take part in deduplication.
func (p *Parser) Run(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	doc := &Document{
		Channel: Channel{
			ID:          parsed.Link,
			Title:       parsed.Title,
			Link:        parsed.Link,
			Description: parsed.Description,
			Language:    parsed.Language,
		},
	}

	if buildDate, ok := lastBuildDate(parsed); ok {
		doc.LastBuildDate = buildDate
	}

	doc.Entries = make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.GUID == "" {
			continue
		}
		doc.Entries = append(doc.Entries, p.normalizeItem(item))
	}

	return doc, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:    item.GUID,
		Title:   item.Title,
		Link:    item.Link,
		Content: cmp.Or(item.Description, item.Content),
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed.UTC()
	}

	entry.UpdatedAt = entry.PublishedAt
	if item.UpdatedParsed != nil {
		entry.UpdatedAt = item.UpdatedParsed.UTC()
	}

	return entry
}
