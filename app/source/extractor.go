package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"
)

const maxPageSize = 10 << 20

// Extractor downloads article pages and reduces them to plain text
// paragraphs. Page requests are spaced by the configured period.
type Extractor struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	sanitizer  *bluemonday.Policy
	userAgent  string
	timeout    time.Duration
}

func NewExtractor(httpClient *http.Client, userAgent string, period, timeout time.Duration) *Extractor {
	limit := rate.Inf
	if period > 0 {
		limit = rate.Every(period)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Scripts and styles confuse readability scoring
	p := bluemonday.UGCPolicy()
	p.AllowElements("article", "section", "header", "footer", "nav", "aside", "main", "figure", "figcaption")
	p.AllowAttrs("id", "class", "lang", "dir").Globally()

	return &Extractor{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		sanitizer:  p,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Extract returns the readable text of the page at link.
func (e *Extractor) Extract(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil || pageURL.Host == "" {
		return "", fmt.Errorf("invalid article URL %q", link)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	data, err := e.fetch(ctx, link)
	if err != nil {
		return "", err
	}

	sanitized := e.sanitizer.Sanitize(string(data))

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(sanitized), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	var buf bytes.Buffer
	if err := article.RenderHTML(&buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	text, err := Paragraphs(buf.String())
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no content extracted from %s", link)
	}

	slog.Debug("Content extracted successfully", "url", link, "content_length", len(text))

	return text, nil
}

func (e *Extractor) fetch(ctx context.Context, link string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// Paragraphs flattens article HTML into blank-line separated text blocks.
// List items become "- " lines.
func Paragraphs(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse article HTML: %w", err)
	}

	var blocks []string
	doc.Find("p, h2, h3, h4, blockquote, ul, ol").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are emitted by their outermost container
		if s.ParentsFiltered("blockquote, ul, ol").Length() > 0 {
			return
		}

		if s.Is("ul, ol") {
			var lines []string
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if text := collapse(li.Text()); text != "" {
					lines = append(lines, "- "+text)
				}
			})
			if len(lines) > 0 {
				blocks = append(blocks, strings.Join(lines, "\n"))
			}
			return
		}

		if text := collapse(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	return strings.Join(blocks, "\n\n"), nil
}

// PlainText strips markup from an HTML fragment.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
