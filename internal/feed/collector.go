package feed

import (
	"context"
	"sync"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/cache"
	"github.com/newsbrief-ai/newsbrief/internal/dedup"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/models"
	"github.com/newsbrief-ai/newsbrief/internal/utils"
)

// Source is a single-feed collector. The RSS Fetcher is the only
// implementation today; other source types plug in here.
type Source interface {
	Fetch(ctx context.Context, source models.Source) ([]models.CollectedItem, error)
}

// CollectStats summarizes one collection sweep.
type CollectStats struct {
	Sources     int
	Failed      int
	Fetched     int
	SeenInCache int
	Collected   int
	FetchedIDs  []int64
}

// Collector fans fetches out over the enabled sources and drops items
// already recorded in the seen cache.
type Collector struct {
	source      Source
	seen        cache.SeenCache
	concurrency int
}

// NewCollector wires a Collector. concurrency caps simultaneous feed
// downloads (default 10).
func NewCollector(source Source, seen cache.SeenCache, concurrency int) *Collector {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Collector{source: source, seen: seen, concurrency: concurrency}
}

// CollectAll fetches every source concurrently. A failing source is
// logged and skipped; one broken feed never aborts the sweep. Returned
// items are cache-filtered but not yet persisted, so the seen cache is
// not updated here; callers mark items seen once they are stored.
func (c *Collector) CollectAll(ctx context.Context, sources []models.Source) ([]models.CollectedItem, CollectStats) {
	log := logger.Get()
	start := time.Now()
	stats := CollectStats{Sources: len(sources)}

	type result struct {
		source models.Source
		items  []models.CollectedItem
		err    error
	}

	results := make(chan result, len(sources))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src models.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			items, err := c.source.Fetch(ctx, src)
			results <- result{source: src, items: items, err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	var collected []models.CollectedItem
	for res := range results {
		if res.err != nil {
			stats.Failed++
			log.Warn().Err(res.err).Str("source", res.source.Name).Msg("source fetch failed")
			continue
		}
		stats.Fetched += len(res.items)
		stats.FetchedIDs = append(stats.FetchedIDs, res.source.ID)

		for _, item := range res.items {
			if item.URL != "" {
				seen, err := c.seen.IsSeen(ctx, SeenKey(item.URL))
				if err != nil {
					log.Warn().Err(err).Msg("seen cache lookup failed")
				} else if seen {
					stats.SeenInCache++
					continue
				}
			}
			collected = append(collected, item)
		}
	}

	stats.Collected = len(collected)
	log.Info().
		Int("sources", stats.Sources).
		Int("failed", stats.Failed).
		Int("fetched", stats.Fetched).
		Int("collected", stats.Collected).
		Dur("duration", time.Since(start)).
		Msg("collection sweep finished")

	return collected, stats
}

// MarkSeen records stored items in the seen cache so the next sweep
// skips them before hitting the database.
func (c *Collector) MarkSeen(ctx context.Context, items []models.CollectedItem, ttl time.Duration) {
	log := logger.Get()
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		if err := c.seen.MarkSeen(ctx, SeenKey(item.URL), ttl); err != nil {
			log.Warn().Err(err).Str("url", item.URL).Msg("mark seen failed")
		}
	}
}

// ResetSeen drops every seen mark, forcing the next sweep to
// re-evaluate all feed entries against the database.
func (c *Collector) ResetSeen(ctx context.Context) error {
	return c.seen.Clear(ctx)
}

// SeenKey hashes a normalized URL into the cache key, so tracking-param
// variants of one link share an entry.
func SeenKey(rawURL string) string {
	return utils.Hash(dedup.NormalizeURL(rawURL))
}
