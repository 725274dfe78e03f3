package feed

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
)

type AggregatorOptions struct {
	GUIDBase     string // entries get GUID and link <GUIDBase>/<date key>
	TitlePrefix  string
	DefaultTitle string
}

type Aggregator struct {
	opts     AggregatorOptions
	renderer *Renderer
}

func NewAggregator(opts AggregatorOptions, renderer *Renderer) *Aggregator {
	opts.GUIDBase = strings.TrimSuffix(opts.GUIDBase, "/")
	opts.DefaultTitle = cmp.Or(opts.DefaultTitle, "Untitled")
	return &Aggregator{
		opts:     opts,
		renderer: renderer,
	}
}

// Build merges existing entries with entries built from briefs whose date
// key is not yet present. The result is ordered by PublishedAt descending
// (GUID descending on ties) and holds at most limit entries. Inputs are not
// modified; a brief that already has an entry is skipped silently.
func (a *Aggregator) Build(existing []Entry, briefs []Brief, limit int) []Entry {
	if limit <= 0 {
		limit = DefaultMaxEntries
	}

	combined := make([]Entry, 0, len(existing)+len(briefs))
	seenGUIDs := make(map[string]struct{}, len(existing)+len(briefs))
	seenKeys := make(map[string]struct{}, len(existing)+len(briefs))

	for _, entry := range existing {
		if _, dup := seenGUIDs[entry.GUID]; dup {
			slog.Warn("Dropping duplicate feed entry", "guid", entry.GUID)
			continue
		}
		seenGUIDs[entry.GUID] = struct{}{}
		seenKeys[entry.DateKey()] = struct{}{}
		combined = append(combined, entry)
	}

	added := 0
	for _, brief := range briefs {
		if _, exists := seenKeys[brief.DateKey]; exists {
			continue
		}

		entry, err := a.buildEntry(brief)
		if err != nil {
			slog.Warn("Skipping brief", "date_key", brief.DateKey, "error", err)
			continue
		}
		if _, dup := seenGUIDs[entry.GUID]; dup {
			continue
		}

		seenKeys[brief.DateKey] = struct{}{}
		seenGUIDs[entry.GUID] = struct{}{}
		combined = append(combined, entry)
		added++

		slog.Debug("Entry added", "guid", entry.GUID, "title", entry.Title)
	}

	slices.SortStableFunc(combined, compareEntries)

	if len(combined) > limit {
		slog.Debug("Feed entries truncated", "total", len(combined), "limit", limit)
		combined = slices.Clip(combined[:limit])
	}

	slog.Debug("Entries aggregated", "existing", len(existing), "added", added, "total", len(combined))

	return combined
}

func (a *Aggregator) buildEntry(brief Brief) (Entry, error) {
	publishedAt, err := ParseDateKey(brief.DateKey)
	if err != nil {
		return Entry{}, err
	}

	content, err := a.renderer.Run(brief.Body)
	if err != nil {
		return Entry{}, err
	}

	guid := a.opts.GUIDBase + "/" + brief.DateKey

	return Entry{
		GUID:        guid,
		Title:       a.title(brief.Body),
		Link:        guid,
		Content:     content,
		PublishedAt: publishedAt,
		UpdatedAt:   publishedAt,
	}, nil
}

// title derives the entry title from the first level-one heading. A heading
// that starts with the configured prefix is normalized to "<prefix> - <rest>".
func (a *Aggregator) title(body string) string {
	heading, ok := firstHeading(body)
	if !ok {
		return a.prefixed(a.opts.DefaultTitle)
	}

	if a.opts.TitlePrefix == "" {
		return heading
	}

	rest, found := strings.CutPrefix(heading, a.opts.TitlePrefix)
	if !found {
		return heading
	}

	rest = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), "-–—:："))
	return a.prefixed(cmp.Or(rest, a.opts.DefaultTitle))
}

func (a *Aggregator) prefixed(label string) string {
	if a.opts.TitlePrefix == "" {
		return label
	}
	return a.opts.TitlePrefix + " - " + label
}

func firstHeading(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if text, ok := strings.CutPrefix(line, "# "); ok {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, true
			}
		}
	}
	return "", false
}

func compareEntries(a, b Entry) int {
	if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
		return c
	}
	return strings.Compare(b.GUID, a.GUID)
}
