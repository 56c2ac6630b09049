package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/cache"
	"github.com/newsbrief-ai/newsbrief/internal/models"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Test Feed</title>
	<item>
		<title>Go 1.25 released</title>
		<link>https://example.com/go-1-25</link>
		<description>&lt;p&gt;The &lt;b&gt;Go team&lt;/b&gt; shipped 1.25 today.&lt;/p&gt;</description>
		<pubDate>Fri, 28 Aug 2026 10:00:00 GMT</pubDate>
	</item>
	<item>
		<title></title>
		<link>https://example.com/untitled</link>
	</item>
</channel>
</rss>`

func TestFetchParsesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), models.Source{Name: "Test Feed", URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item (untitled entry dropped), got %d", len(items))
	}

	item := items[0]
	if item.Title != "Go 1.25 released" {
		t.Errorf("title = %q", item.Title)
	}
	if item.URL != "https://example.com/go-1-25" {
		t.Errorf("url = %q", item.URL)
	}
	if strings.Contains(item.Content, "<") {
		t.Errorf("content not stripped of markup: %q", item.Content)
	}
	if !strings.Contains(item.Content, "Go team shipped 1.25") {
		t.Errorf("content lost text: %q", item.Content)
	}
	if item.PublishedAt == nil || item.PublishedAt.Day() != 28 {
		t.Errorf("published at = %v", item.PublishedAt)
	}
	if item.SourceName != "Test Feed" {
		t.Errorf("source name = %q", item.SourceName)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	if _, err := f.Fetch(context.Background(), models.Source{Name: "down", URL: srv.URL}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello &amp; <a href=\"x\">world</a></p>")
	if got != "Hello & world" {
		t.Errorf("stripHTML = %q", got)
	}
}

func TestContentTruncated(t *testing.T) {
	long := strings.Repeat("a", 5000)
	rss := strings.Replace(sampleRSS, "shipped 1.25 today.", long, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rss)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), models.Source{Name: "long", URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := len([]rune(items[0].Content)); n > maxContentLength {
		t.Errorf("content length %d exceeds cap %d", n, maxContentLength)
	}
}

// fetchFunc adapts a function to the Source interface for tests.
type fetchFunc func(ctx context.Context, source models.Source) ([]models.CollectedItem, error)

func (f fetchFunc) Fetch(ctx context.Context, source models.Source) ([]models.CollectedItem, error) {
	return f(ctx, source)
}

func TestCollectAllIsolatesFailures(t *testing.T) {
	src := fetchFunc(func(_ context.Context, source models.Source) ([]models.CollectedItem, error) {
		if source.Name == "broken" {
			return nil, fmt.Errorf("connection refused")
		}
		return []models.CollectedItem{
			{Title: "story from " + source.Name, URL: "https://example.com/" + source.Name, SourceName: source.Name},
		}, nil
	})

	c := NewCollector(src, cache.NewMemoryCache(), 4)
	items, stats := c.CollectAll(context.Background(), []models.Source{
		{ID: 1, Name: "alpha"},
		{ID: 2, Name: "broken"},
		{ID: 3, Name: "beta"},
	})

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if stats.Failed != 1 {
		t.Errorf("failed = %d", stats.Failed)
	}
	if stats.Fetched != 2 || stats.Collected != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.FetchedIDs) != 2 {
		t.Errorf("fetched ids = %v", stats.FetchedIDs)
	}
}

func TestCollectAllSkipsSeenURLs(t *testing.T) {
	item := models.CollectedItem{Title: "repeat", URL: "https://example.com/repeat"}
	src := fetchFunc(func(_ context.Context, _ models.Source) ([]models.CollectedItem, error) {
		return []models.CollectedItem{item}, nil
	})

	seen := cache.NewMemoryCache()
	c := NewCollector(src, seen, 4)

	first, _ := c.CollectAll(context.Background(), []models.Source{{ID: 1, Name: "a"}})
	if len(first) != 1 {
		t.Fatalf("expected item on first sweep, got %d", len(first))
	}
	c.MarkSeen(context.Background(), first, time.Hour)

	second, stats := c.CollectAll(context.Background(), []models.Source{{ID: 1, Name: "a"}})
	if len(second) != 0 {
		t.Fatalf("expected seen item skipped, got %d", len(second))
	}
	if stats.SeenInCache != 1 {
		t.Errorf("seen count = %d", stats.SeenInCache)
	}

	if err := c.ResetSeen(context.Background()); err != nil {
		t.Fatalf("reset seen: %v", err)
	}
	third, _ := c.CollectAll(context.Background(), []models.Source{{ID: 1, Name: "a"}})
	if len(third) != 1 {
		t.Fatalf("expected item again after cache reset, got %d", len(third))
	}
}
