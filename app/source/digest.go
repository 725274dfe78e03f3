package source

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Collect extracts the body of every item. A failed extraction is logged and
// leaves the body empty; only context cancellation aborts the batch.
func (e *Extractor) Collect(ctx context.Context, items []Item) ([]Article, error) {
	articles := make([]Article, 0, len(items))
	failed := 0

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		article := Article{Item: item}
		if item.Link != "" {
			body, err := e.Extract(ctx, item.Link)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed++
				slog.Warn("Article extraction failed", "url", item.Link, "error", err)
			}
			article.Body = body
		}
		articles = append(articles, article)
	}

	slog.Debug("Articles collected", "total", len(articles), "failed", failed)

	return articles, nil
}

// Digest renders articles as one markdown document under the given heading.
func Digest(heading string, articles []Article) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(heading)
	b.WriteString("\n\n")

	for _, a := range articles {
		b.WriteString("## ")
		b.WriteString(a.Title)
		b.WriteString("\n\n")

		if !a.PublishedAt.IsZero() {
			b.WriteString("*Published: ")
			b.WriteString(a.PublishedAt.Format(time.RFC1123Z))
			b.WriteString("*\n\n")
		}

		if a.Link != "" {
			b.WriteString("[Source](")
			b.WriteString(a.Link)
			b.WriteString(")\n\n")
		}

		if a.Summary != "" {
			b.WriteString(a.Summary)
			b.WriteString("\n\n")
		}

		if a.Body != "" {
			b.WriteString("### Body\n\n")
			b.WriteString(a.Body)
			b.WriteString("\n\n")
		}

		b.WriteString("---\n\n")
	}

	return b.String()
}
