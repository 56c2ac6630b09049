// Package feed fetches and normalizes articles from configured RSS and
// Atom sources.
package feed

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

const (
	userAgent = "newsbrief/1.0 (+https://github.com/newsbrief-ai/newsbrief)"

	// Feed entries get their markup stripped and body capped; the
	// scorer only sees ~300 characters anyway.
	maxContentLength = 2000
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Fetcher retrieves one feed and turns its entries into CollectedItems.
type Fetcher struct {
	client *resty.Client
	parser *gofeed.Parser
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml"),
		parser: gofeed.NewParser(),
	}
}

// Fetch downloads and parses one source. Entries missing a title are
// dropped; everything else is normalized into a CollectedItem.
func (f *Fetcher) Fetch(ctx context.Context, source models.Source) ([]models.CollectedItem, error) {
	resp, err := f.client.R().SetContext(ctx).Get(source.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.Name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", source.Name, resp.StatusCode())
	}

	parsed, err := f.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source.Name, err)
	}

	items := make([]models.CollectedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}

		items = append(items, models.CollectedItem{
			Title:       title,
			URL:         strings.TrimSpace(entry.Link),
			Content:     normalizeContent(entry),
			Author:      entryAuthor(entry),
			PublishedAt: entryPublished(entry),
			SourceName:  source.Name,
		})
	}
	return items, nil
}

// normalizeContent prefers the full content body over the description,
// strips markup and caps the length.
func normalizeContent(entry *gofeed.Item) string {
	body := entry.Content
	if strings.TrimSpace(body) == "" {
		body = entry.Description
	}
	return truncate(stripHTML(body), maxContentLength)
}

func entryAuthor(entry *gofeed.Item) string {
	if len(entry.Authors) > 0 {
		return strings.TrimSpace(entry.Authors[0].Name)
	}
	return ""
}

// entryPublished falls back to the updated timestamp; some Atom feeds
// only carry that one.
func entryPublished(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		t := entry.PublishedParsed.UTC()
		return &t
	}
	if entry.UpdatedParsed != nil {
		t := entry.UpdatedParsed.UTC()
		return &t
	}
	return nil
}

func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
