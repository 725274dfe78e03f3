package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"
)

type Generator struct {
	selfLink string
	version  string
}

func NewGenerator(selfLink, version string) *Generator {
	return &Generator{
		selfLink: selfLink,
		version:  version,
	}
}

// Run renders doc as RSS 2.0. The output depends only on doc, so rendering
// the same document twice yields identical bytes.
func (g *Generator) Run(doc Document) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", doc.Channel.Title, 4)
	g.writeElement(&buf, "link", cmp.Or(doc.Channel.Link, doc.Channel.ID), 4)
	g.writeElement(&buf, "description", cmp.Or(doc.Channel.Description, doc.Channel.Title), 4)

	if g.selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.selfLink)))
	}

	if doc.Channel.Language != "" {
		g.writeElement(&buf, "language", doc.Channel.Language, 4)
	}

	if !doc.LastBuildDate.IsZero() {
		g.writeElement(&buf, "lastBuildDate", doc.LastBuildDate.UTC().Format(time.RFC1123Z), 4)
	}
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Brief/%s", cmp.Or(g.version, "dev")), 4)

	for _, entry := range doc.Entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("    <item>\n")

	if entry.GUID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(entry.GUID)))
		xml.EscapeText(buf, []byte(entry.GUID))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", entry.Title, 6)
	g.writeElement(buf, "link", entry.Link, 6)
	g.writeElement(buf, "description", cmp.Or(entry.Content, "No description available"), 6)

	if !entry.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", entry.PublishedAt.UTC().Format(time.RFC1123Z), 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
