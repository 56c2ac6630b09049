// Package dedup removes duplicate articles collected from multiple
// feeds that syndicate each other. Detection runs in three passes so
// the cheap checks short-circuit the expensive one: URL hash, exact
// normalized title, then fuzzy title similarity.
package dedup

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/newsbrief-ai/newsbrief/internal/models"
	"github.com/newsbrief-ai/newsbrief/internal/utils"
)

// Reasons attached to discarded duplicates.
const (
	ReasonDuplicateURL   = "URL already seen"
	ReasonDuplicateTitle = "Title already seen (exact match)"
)

var titlePrefixes = []string{"breaking:", "just in:", "update:"}

// Result describes one article's dedup verdict.
type Result struct {
	Item      models.CollectedItem
	Duplicate bool
	Reason    string
	SimilarTo string
}

// Deduplicator holds the seen state for a single run. It is not safe
// for concurrent use; the pipeline deduplicates on one goroutine after
// all collectors have finished.
type Deduplicator struct {
	threshold  float64
	seenHashes map[string]struct{}
	seenTitles map[string]string
	titles     []string
}

// New creates a Deduplicator with an empty corpus. threshold is the
// minimum similarity ratio, in (0, 1], at which two normalized titles
// count as the same story.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Deduplicator{
		threshold:  threshold,
		seenHashes: make(map[string]struct{}),
		seenTitles: make(map[string]string),
	}
}

// Seed registers already-stored articles so new arrivals are compared
// against the existing corpus, not only against each other.
func (d *Deduplicator) Seed(items []models.RawItem) {
	for _, it := range items {
		d.remember(it.URL, it.Title)
	}
}

// Check classifies one article against everything seen so far. Unique
// articles are immediately remembered, so feeding the same article
// twice flags the second occurrence.
func (d *Deduplicator) Check(item models.CollectedItem) Result {
	res := Result{Item: item}

	if item.URL != "" {
		h := utils.Hash(NormalizeURL(item.URL))
		if _, ok := d.seenHashes[h]; ok {
			res.Duplicate = true
			res.Reason = ReasonDuplicateURL
			return res
		}
	}

	title := NormalizeTitle(item.Title)
	if title != "" {
		if orig, ok := d.seenTitles[title]; ok {
			res.Duplicate = true
			res.Reason = ReasonDuplicateTitle
			res.SimilarTo = orig
			return res
		}
		for _, seen := range d.titles {
			if ratio := similarity(title, seen); ratio >= d.threshold {
				res.Duplicate = true
				res.Reason = fmt.Sprintf("Similar title (similarity: %.2f)", ratio)
				res.SimilarTo = d.seenTitles[seen]
				return res
			}
		}
	}

	d.remember(item.URL, item.Title)
	return res
}

// Run partitions a batch into unique and duplicate articles, preserving
// input order within each partition.
func (d *Deduplicator) Run(items []models.CollectedItem) (unique []models.CollectedItem, duplicates []Result) {
	for _, item := range items {
		res := d.Check(item)
		if res.Duplicate {
			duplicates = append(duplicates, res)
		} else {
			unique = append(unique, item)
		}
	}
	return unique, duplicates
}

func (d *Deduplicator) remember(rawURL, rawTitle string) {
	if rawURL != "" {
		d.seenHashes[utils.Hash(NormalizeURL(rawURL))] = struct{}{}
	}
	if title := NormalizeTitle(rawTitle); title != "" {
		if _, ok := d.seenTitles[title]; !ok {
			d.seenTitles[title] = rawTitle
			d.titles = append(d.titles, title)
		}
	}
}

// NormalizeURL canonicalizes a link so syndicated copies of the same
// article hash identically: scheme and www. are dropped, tracking
// parameters removed, remaining query keys sorted, trailing slash
// trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(u.Path, "/")

	query := ""
	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			if isTrackingParam(k) {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			for _, v := range values[k] {
				parts = append(parts, k+"="+v)
			}
		}
		if len(parts) > 0 {
			query = "?" + strings.Join(parts, "&")
		}
	}

	return host + path + query
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	switch key {
	case "ref", "source", "campaign":
		return true
	}
	return false
}

// NormalizeTitle reduces a headline to its comparable core: lowercase,
// whitespace collapsed, newsroom prefixes and the trailing
// " - Publication" suffix removed.
func NormalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = strings.Join(strings.Fields(t), " ")

	for _, p := range titlePrefixes {
		if strings.HasPrefix(t, p) {
			t = strings.TrimSpace(strings.TrimPrefix(t, p))
			break
		}
	}

	// Only strip a source suffix when something substantial remains,
	// so titles that are just "A - B" survive.
	if idx := strings.LastIndex(t, " - "); idx > 10 {
		t = t[:idx]
	}

	return strings.TrimSpace(t)
}

// similarity returns a ratio in [0, 1] between two strings, computed as
// 2*M/T where M is the total length of the longest matching blocks and
// T the combined length. Equivalent strings score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	matched := matchingBlocks([]byte(a), []byte(b))
	return 2 * float64(matched) / float64(total)
}

// matchingBlocks sums the lengths of matching blocks found by
// recursively locating the longest common substring and matching the
// pieces on each side of it.
func matchingBlocks(a, b []byte) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	matched := size
	matched += matchingBlocks(a[:ai], b[:bi])
	matched += matchingBlocks(a[ai+size:], b[bi+size:])
	return matched
}

func longestMatch(a, b []byte) (bestA, bestB, bestSize int) {
	// b-index lookup keeps this O(len(a) * occurrences) instead of
	// scanning all of b for every position of a.
	positions := make(map[byte][]int, len(b))
	for j, c := range b {
		positions[c] = append(positions[c], j)
	}

	// lengths[j] is the length of the match ending at a[i-1], b[j-1].
	lengths := make(map[int]int)
	for i := range a {
		next := make(map[int]int)
		for _, j := range positions[a[i]] {
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA, bestB, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return bestA, bestB, bestSize
}
