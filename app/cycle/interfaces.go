package cycle

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-brief/app/feed"
	"github.com/lysyi3m/rss-brief/app/reconcile"
	"github.com/lysyi3m/rss-brief/app/source"
	"github.com/lysyi3m/rss-brief/app/summarize"
)

type FetcherInterface interface {
	FetchSince(ctx context.Context, since time.Time, hasSince bool) ([]source.Item, error)
}

type CollectorInterface interface {
	Collect(ctx context.Context, items []source.Item) ([]source.Article, error)
}

type SummarizerInterface interface {
	Summarize(ctx context.Context, t time.Time, digest string) (feed.Brief, error)
}

type ReconcilerInterface interface {
	Run(ctx context.Context) reconcile.Result
}

var (
	_ FetcherInterface    = (*source.Fetcher)(nil)
	_ CollectorInterface  = (*source.Extractor)(nil)
	_ SummarizerInterface = (*summarize.Summarizer)(nil)
	_ ReconcilerInterface = (*reconcile.Reconciler)(nil)
)
