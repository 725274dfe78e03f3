package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>The Long Read</title><script>window.tracking = true;</script></head>
<body>
  <nav><a href="/">Home</a> <a href="/politics">Politics</a></nav>
  <article>
    <h1>The Long Read</h1>
    <p>The first paragraph of the article explains the premise at length, with enough words to look like real prose to a content scorer, and it keeps going for a while.</p>
    <p>The second paragraph develops the argument further, citing sources, weighing evidence, and adding detail so the body clearly dominates the page.</p>
    <h2>A Section Heading</h2>
    <p>The third paragraph concludes the piece with a summary of the findings, a few closing thoughts, and a final sentence that wraps everything up neatly.</p>
    <ul><li>First point</li><li>Second point</li></ul>
  </article>
  <footer>Copyright</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	t.Cleanup(srv.Close)

	extractor := NewExtractor(srv.Client(), "ua", 0, time.Second)

	text, err := extractor.Extract(context.Background(), srv.URL+"/article")
	require.NoError(t, err)

	assert.Contains(t, text, "The first paragraph of the article explains the premise")
	assert.Contains(t, text, "The third paragraph concludes the piece")
	assert.NotContains(t, text, "window.tracking")
	assert.NotContains(t, text, "<p>")
}

func TestExtractErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	extractor := NewExtractor(srv.Client(), "ua", 0, time.Second)

	_, err := extractor.Extract(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	_, err = extractor.Extract(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestExtractIsRateLimited(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		_, _ = w.Write([]byte(articlePage))
	}))
	t.Cleanup(srv.Close)

	period := 100 * time.Millisecond
	extractor := NewExtractor(srv.Client(), "ua", period, time.Second)

	for i := 0; i < 3; i++ {
		_, err := extractor.Extract(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	require.Len(t, times, 3)
	// Allow some scheduling slack below the nominal period
	assert.GreaterOrEqual(t, times[2].Sub(times[0]), 2*period-20*time.Millisecond)
}

func TestExtractStopsOnCancelledContext(t *testing.T) {
	extractor := NewExtractor(http.DefaultClient, "ua", time.Hour, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the single token so the next call has to wait
	require.NoError(t, extractor.limiter.Wait(ctx))
	cancel()

	_, err := extractor.Extract(ctx, "https://example.com/article")
	assert.Error(t, err)
}

func TestParagraphs(t *testing.T) {
	html := `<div>
		<h2>Heading</h2>
		<p>First   paragraph
		wraps.</p>
		<blockquote><p>Quoted text</p></blockquote>
		<ol><li>One</li><li><p>Two</p></li></ol>
		<p>   </p>
	</div>`

	text, err := Paragraphs(html)
	require.NoError(t, err)

	expected := strings.Join([]string{
		"Heading",
		"First paragraph wraps.",
		"Quoted text",
		"- One\n- Two",
	}, "\n\n")
	assert.Equal(t, expected, text)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello world & more", PlainText("<p>Hello <em>world</em> &amp; more</p>"))
	assert.Equal(t, "", PlainText("   "))
}
