package feed

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testGUIDBase = "https://www.theatlantic.com/daily-brief"

func newTestAggregator() *Aggregator {
	return NewAggregator(AggregatorOptions{
		GUIDBase:     testGUIDBase,
		TitlePrefix:  "The Atlantic 每日综述",
		DefaultTitle: "未知日期",
	}, NewRenderer())
}

func existingEntry(dateKey string) Entry {
	published, _ := ParseDateKey(dateKey)
	return Entry{
		GUID:        testGUIDBase + "/" + dateKey,
		Title:       "Existing " + dateKey,
		Link:        testGUIDBase + "/" + dateKey,
		Content:     "<p>existing</p>",
		PublishedAt: published,
		UpdatedAt:   published,
	}
}

func brief(dateKey string) Brief {
	return Brief{
		DateKey: dateKey,
		Body:    "# The Atlantic 每日综述 - " + dateKey + "\n\n## Article\n\nSummary for " + dateKey + ".\n",
	}
}

func consecutiveEntries(start time.Time, n int) []Entry {
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, existingEntry(start.AddDate(0, 0, i).Format(DateKeyLayout)))
	}
	return entries
}

func assertInvariants(t *testing.T, entries []Entry, limit int) {
	t.Helper()

	if len(entries) > limit {
		t.Errorf("Expected at most %d entries, got %d", limit, len(entries))
	}

	seen := make(map[string]bool)
	for i, entry := range entries {
		if seen[entry.GUID] {
			t.Errorf("Duplicate GUID %s", entry.GUID)
		}
		seen[entry.GUID] = true

		if i > 0 && entries[i-1].PublishedAt.Before(entry.PublishedAt) {
			t.Errorf("Entries not ordered by publishedAt: %v before %v", entries[i-1].PublishedAt, entry.PublishedAt)
		}
	}
}

func TestBuildDeduplicatesByDateKey(t *testing.T) {
	aggregator := newTestAggregator()
	existing := []Entry{existingEntry("20240101")}

	result := aggregator.Build(existing, []Brief{brief("20240101")}, 50)

	if !reflect.DeepEqual(result, existing) {
		t.Errorf("Expected existing entries unchanged, got %+v", result)
	}
}

func TestBuildOrdersNewEntries(t *testing.T) {
	aggregator := newTestAggregator()

	result := aggregator.Build(nil, []Brief{brief("20240301"), brief("20240302")}, 50)

	if len(result) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result))
	}
	if result[0].GUID != testGUIDBase+"/20240302" {
		t.Errorf("Expected 20240302 first, got %s", result[0].GUID)
	}
	if result[1].GUID != testGUIDBase+"/20240301" {
		t.Errorf("Expected 20240301 second, got %s", result[1].GUID)
	}

	expectedDate := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !result[0].PublishedAt.Equal(expectedDate) || !result[0].UpdatedAt.Equal(expectedDate) {
		t.Errorf("Expected midnight UTC %v, got published %v updated %v", expectedDate, result[0].PublishedAt, result[0].UpdatedAt)
	}
	if result[0].Link != result[0].GUID {
		t.Errorf("Expected link to equal GUID, got %s", result[0].Link)
	}
	assertInvariants(t, result, 50)
}

func TestBuildTruncatesToCap(t *testing.T) {
	aggregator := newTestAggregator()
	existing := consecutiveEntries(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 51)

	result := aggregator.Build(existing, []Brief{brief("20240222")}, 50)

	if len(result) != 50 {
		t.Fatalf("Expected 50 entries, got %d", len(result))
	}
	if result[0].GUID != testGUIDBase+"/20240222" {
		t.Errorf("Expected newest brief first, got %s", result[0].GUID)
	}
	for _, entry := range result {
		if entry.DateKey() == "20240101" {
			t.Error("Expected oldest entry 20240101 to be dropped")
		}
	}
	assertInvariants(t, result, 50)

	if len(existing) != 51 {
		t.Errorf("Expected input slice untouched, got length %d", len(existing))
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	result := newTestAggregator().Build(nil, nil, 50)
	if len(result) != 0 {
		t.Errorf("Expected no entries, got %d", len(result))
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	aggregator := newTestAggregator()
	existing := consecutiveEntries(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 10)
	briefs := []Brief{brief("20240215"), brief("20240205"), brief("20240212")}

	first := aggregator.Build(existing, briefs, 12)
	second := aggregator.Build(existing, briefs, 12)

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical output for identical input")
	}

	generator := NewGenerator("", "test")
	buildDate := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	rssFirst, _ := generator.Run(Document{Entries: first, LastBuildDate: buildDate})
	rssSecond, _ := generator.Run(Document{Entries: second, LastBuildDate: buildDate})
	if rssFirst != rssSecond {
		t.Error("Expected byte-identical rendered feeds")
	}

	// Reprocessing the output with the same briefs is a no-op
	third := aggregator.Build(first, briefs, 12)
	if !reflect.DeepEqual(first, third) {
		t.Error("Expected rebuilding from the output to be a no-op")
	}
}

func TestBuildInvariantsAcrossCaps(t *testing.T) {
	aggregator := newTestAggregator()
	existing := consecutiveEntries(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), 40)
	existing = append(existing, existingEntry("20231205")) // duplicate GUID in a damaged feed

	var briefs []Brief
	for day := 1; day <= 20; day++ {
		briefs = append(briefs, brief(fmt.Sprintf("202401%02d", day)))
	}

	for _, limit := range []int{1, 5, 40, 50, 100} {
		result := aggregator.Build(existing, briefs, limit)
		assertInvariants(t, result, limit)
	}
}

func TestBuildTieBreaksByGUID(t *testing.T) {
	aggregator := newTestAggregator()
	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := []Entry{
		{GUID: "https://a.example/x/a", PublishedAt: published},
		{GUID: "https://a.example/x/c", PublishedAt: published},
		{GUID: "https://a.example/x/b", PublishedAt: published},
	}

	result := aggregator.Build(existing, nil, 50)

	got := []string{result[0].GUID, result[1].GUID, result[2].GUID}
	want := []string{"https://a.example/x/c", "https://a.example/x/b", "https://a.example/x/a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestBuildSkipsInvalidDateKeys(t *testing.T) {
	result := newTestAggregator().Build(nil, []Brief{{DateKey: "notadate", Body: "# x"}, brief("20240301")}, 50)
	if len(result) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(result))
	}
}

func TestBuildEntryTitleAndContent(t *testing.T) {
	aggregator := newTestAggregator()

	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "prefixed heading",
			body:     "# The Atlantic 每日综述 - 2024年3月1日\n\ntext",
			expected: "The Atlantic 每日综述 - 2024年3月1日",
		},
		{
			name:     "missing heading falls back to default label",
			body:     "no heading here\n\n## Second level only",
			expected: "The Atlantic 每日综述 - 未知日期",
		},
		{
			name:     "foreign heading is kept",
			body:     "# Weekend Edition\n\ntext",
			expected: "Weekend Edition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := aggregator.Build(nil, []Brief{{DateKey: "20240301", Body: tt.body}}, 50)
			if len(result) != 1 {
				t.Fatalf("Expected 1 entry, got %d", len(result))
			}
			if result[0].Title != tt.expected {
				t.Errorf("Expected title %q, got %q", tt.expected, result[0].Title)
			}
		})
	}

	result := aggregator.Build(nil, []Brief{{DateKey: "20240301", Body: "# Title\n\n**bold** <script>alert(1)</script>"}}, 50)
	content := result[0].Content
	if !strings.Contains(content, "<strong>bold</strong>") {
		t.Errorf("Expected rendered markdown, got %s", content)
	}
	if strings.Contains(content, "<script>") {
		t.Errorf("Expected script to be stripped, got %s", content)
	}
}
