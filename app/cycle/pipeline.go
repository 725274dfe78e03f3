package cycle

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rss-brief/app/feed"
	"github.com/lysyi3m/rss-brief/app/reconcile"
	"github.com/lysyi3m/rss-brief/app/source"
)

type Options struct {
	FeedPath    string
	MaxEntries  int
	Channel     feed.Channel
	DigestTitle string
	DateLayout  string // human readable date in the digest heading
	Location    *time.Location
}

// Components are the collaborators of a Pipeline. Briefs and Articles are
// separate stores; only Briefs feed the aggregator.
type Components struct {
	Fetcher    FetcherInterface
	Collector  CollectorInterface
	Summarizer SummarizerInterface
	Reconciler ReconcilerInterface
	Briefs     *feed.BriefStore
	Articles   *feed.BriefStore
	Aggregator *feed.Aggregator
	Generator  *feed.Generator
	Parser     *feed.Parser
}

// Pipeline runs the daily cycle: ingest, summarize, rebuild the local feed
// and reconcile it with the remote copy. Cycles and syncs never overlap.
type Pipeline struct {
	Components
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	running atomic.Bool

	statusMu  sync.RWMutex
	lastCycle *Report
	lastSync  *reconcile.Result
}

func NewPipeline(components Components, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	opts.DateLayout = cmp.Or(opts.DateLayout, "2006-01-02")
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = feed.DefaultMaxEntries
	}
	if components.Parser == nil {
		components.Parser = feed.NewParser()
	}

	return &Pipeline{
		Components: components,
		opts:       opts,
		now:        time.Now,
	}
}

// RunCycle performs one complete cycle. A failure before reconciliation
// aborts the cycle and leaves the local feed as it was.
func (p *Pipeline) RunCycle(ctx context.Context) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	report := Report{StartedAt: p.now()}
	err := p.runCycle(ctx, &report)
	report.Err = err
	report.FinishedAt = p.now()

	p.statusMu.Lock()
	p.lastCycle = &report
	if report.Reconcile != nil {
		p.lastSync = report.Reconcile
	}
	p.statusMu.Unlock()

	if err != nil {
		slog.Error("Cycle failed", "new_items", report.NewItems, "duration", report.FinishedAt.Sub(report.StartedAt), "error", err)
		return report, err
	}

	slog.Info("Cycle completed",
		"new_items", report.NewItems,
		"date_key", report.DateKey,
		"rebuilt", report.Rebuilt,
		"entries", report.Entries,
		"decision", report.Reconcile.Decision,
		"duration", report.FinishedAt.Sub(report.StartedAt))

	return report, nil
}

func (p *Pipeline) runCycle(ctx context.Context, report *Report) error {
	local, err := feed.ReadLocal(p.opts.FeedPath)
	if err != nil {
		return err
	}

	since, hasSince := feed.Watermark(local)
	if hasSince {
		slog.Debug("Local watermark", "last_build_date", since)
	}

	items, err := p.Fetcher.FetchSince(ctx, since, hasSince)
	if err != nil {
		return fmt.Errorf("failed to fetch source feed: %w", err)
	}
	report.NewItems = len(items)

	if len(items) == 0 {
		slog.Info("No new source items, skipping summarization")
	} else {
		now := p.now()

		brief, err := p.summarize(ctx, now, items)
		if err != nil {
			return err
		}
		report.DateKey = brief.DateKey

		entries, rebuilt, err := p.rebuild(local, now)
		if err != nil {
			return err
		}
		report.Rebuilt = rebuilt
		report.Entries = entries
	}

	result := p.Reconciler.Run(ctx)
	report.Reconcile = &result
	if !result.Succeeded() {
		return fmt.Errorf("failed to reconcile feed: %w", result.Err)
	}

	return nil
}

func (p *Pipeline) summarize(ctx context.Context, now time.Time, items []source.Item) (feed.Brief, error) {
	articles, err := p.Collector.Collect(ctx, items)
	if err != nil {
		return feed.Brief{}, fmt.Errorf("failed to collect articles: %w", err)
	}

	heading := p.opts.DigestTitle + " - " + now.In(p.opts.Location).Format(p.opts.DateLayout)
	if p.opts.DigestTitle == "" {
		heading = now.In(p.opts.Location).Format(p.opts.DateLayout)
	}
	digest := source.Digest(heading, articles)

	if p.Articles != nil {
		archived := feed.Brief{DateKey: feed.DateKeyFor(now, p.opts.Location), Body: digest}
		if err := p.Articles.Save(archived); err != nil {
			return feed.Brief{}, fmt.Errorf("failed to archive articles: %w", err)
		}
	}

	brief, err := p.Summarizer.Summarize(ctx, now, digest)
	if err != nil {
		return feed.Brief{}, err
	}

	if err := p.Briefs.Save(brief); err != nil {
		return feed.Brief{}, err
	}

	slog.Debug("Brief stored", "date_key", brief.DateKey, "path", p.Briefs.Path(brief.DateKey))

	return brief, nil
}

// rebuild folds every stored brief into the existing entries and writes the
// local feed with lastBuildDate set to now. A malformed local feed is left
// untouched so the reconciler can replace it with the remote copy; the brief
// stays stored and is folded in on the next rebuild.
func (p *Pipeline) rebuild(local []byte, now time.Time) (int, bool, error) {
	var existing []feed.Entry
	if len(local) > 0 {
		doc, err := p.Parser.Run(local)
		if errors.Is(err, feed.ErrParse) {
			slog.Warn("Local feed is malformed, skipping rebuild", "path", p.opts.FeedPath, "error", err)
			return 0, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to parse local feed: %w", err)
		}
		existing = doc.Entries
	}

	briefs, err := p.Briefs.List()
	if err != nil {
		return 0, false, err
	}

	entries := p.Aggregator.Build(existing, briefs, p.opts.MaxEntries)

	out, err := p.Generator.Run(feed.Document{
		Channel:       p.opts.Channel,
		Entries:       entries,
		LastBuildDate: now.UTC().Truncate(time.Second),
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to generate feed: %w", err)
	}

	if err := feed.WriteFileAtomic(p.opts.FeedPath, []byte(out)); err != nil {
		return 0, false, err
	}

	return len(entries), true, nil
}

// Sync reconciles the local feed with the remote copy without ingesting.
func (p *Pipeline) Sync(ctx context.Context) reconcile.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running.Store(true)
	defer p.running.Store(false)

	result := p.Reconciler.Run(ctx)

	p.statusMu.Lock()
	p.lastSync = &result
	p.statusMu.Unlock()

	return result
}

func (p *Pipeline) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	status := Status{Running: p.running.Load()}
	if p.lastCycle != nil {
		cycle := *p.lastCycle
		status.LastCycle = &cycle
	}
	if p.lastSync != nil {
		last := *p.lastSync
		status.LastSync = &last
	}
	return status
}
