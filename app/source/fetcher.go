package source

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Fetcher reads the source feed and keeps the items published after a
// watermark.
type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	url        string
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, url, userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		url:        url,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// FetchSince returns source items published strictly after since, in feed
// order. When hasSince is false every dated item is returned. Items without
// a publication date are only returned when there is no watermark.
func (f *Fetcher) FetchSince(ctx context.Context, since time.Time, hasSince bool) ([]Item, error) {
	data, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse source feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	skipped := 0
	for _, raw := range parsed.Items {
		if raw == nil {
			continue
		}

		published := raw.PublishedParsed
		if published == nil {
			published = raw.UpdatedParsed
		}

		switch {
		case published == nil && hasSince:
			skipped++
			continue
		case published != nil && hasSince && !published.After(since):
			skipped++
			continue
		}

		item := Item{
			Title:   cmp.Or(raw.Title, "Untitled"),
			Link:    raw.Link,
			Summary: PlainText(raw.Description),
		}
		if published != nil {
			item.PublishedAt = published.UTC()
		}
		items = append(items, item)
	}

	slog.Debug("Source feed fetched",
		"url", f.url,
		"total", len(parsed.Items),
		"new", len(items),
		"skipped", skipped,
		"since", since)

	return items, nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
