package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	articles := []Article{
		{
			Item: Item{
				Title:       "First",
				Link:        "https://example.com/first",
				Summary:     "Short summary",
				PublishedAt: time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC),
			},
			Body: "Body text",
		},
		{
			Item: Item{Title: "Second"},
		},
	}

	digest := Digest("The Atlantic Daily Articles - 20240302", articles)

	assert.True(t, strings.HasPrefix(digest, "# The Atlantic Daily Articles - 20240302\n\n"))
	assert.Contains(t, digest, "## First\n\n*Published: Sat, 02 Mar 2024 14:00:00 +0000*\n\n[Source](https://example.com/first)\n\nShort summary\n\n### Body\n\nBody text\n\n---\n\n")
	assert.Contains(t, digest, "## Second\n\n---\n\n")
	assert.Equal(t, 2, strings.Count(digest, "---"))
}

func TestCollectKeepsItemsWhenExtractionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(articlePage))
	}))
	t.Cleanup(srv.Close)

	extractor := NewExtractor(srv.Client(), "ua", 0, time.Second)
	items := []Item{
		{Title: "Works", Link: srv.URL + "/ok"},
		{Title: "Broken", Link: srv.URL + "/broken"},
		{Title: "No link"},
	}

	articles, err := extractor.Collect(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.NotEmpty(t, articles[0].Body)
	assert.Empty(t, articles[1].Body)
	assert.Empty(t, articles[2].Body)
	assert.Equal(t, "Broken", articles[1].Title)
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(http.DefaultClient, "ua", 0, time.Second).Collect(ctx, []Item{{Title: "x", Link: "https://example.com"}})
	assert.ErrorIs(t, err, context.Canceled)
}
