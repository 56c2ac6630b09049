// Package rules applies cheap keyword and sanity checks to collected
// articles before they are sent to the language model, cutting obvious
// noise (job ads, tutorials, stale posts) without spending tokens.
package rules

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// titleBlacklist rejects promotional and evergreen content. Patterns
// match anywhere in the title.
var titleBlacklist = compile([]string{
	`\b[Ss]ponsor(ed)?\b`,
	`\b[Aa][Dd](vertisement)?\b`,
	`\b[Pp]romoted\b`,
	`\b[Hh]ow\s+to\b`,
	`\b[Tt]utorial\b`,
	`\b[Gg]uide\b`,
	`\b[Jj]obs?\b`,
	`\b[Hh]iring\b`,
	`\b[Cc]areer\b`,
	`\b[Ww]eekly\s+[Rr]oundup\b`,
	`\b[Nn]ewsletter\b`,
	`\b[Pp]odcast\b`,
	`\b[Ee]pisode\b`,
	`\b[Rr]ecap\b`,
	`招聘`,
	`求职`,
	`广告`,
	`教程`,
	`指南`,
	`入门`,
	`周报`,
	`月报`,
	`总结`,
	`盘点`,
	`合辑`,
})

// titleWhitelist short-circuits the blacklist: major vendors and event
// verbs always get through to scoring.
var titleWhitelist = compile([]string{
	`\bOpenAI\b`,
	`\bAnthropic\b`,
	`\bGoogle\b`,
	`\bDeepMind\b`,
	`\bMeta\b`,
	`\bMicrosoft\b`,
	`\bApple\b`,
	`\bNVIDIA\b`,
	`\bTesla\b`,
	`\bEthereum\b`,
	`\bBitcoin\b`,
	`\bSolana\b`,
	`\brelease\b`,
	`\blaunch\b`,
	`\bannounce\b`,
	`\bacquire\b`,
	`\bfunding\b`,
	`\binvest\b`,
	`\bmerger\b`,
	`发布`,
	`推出`,
	`收购`,
	`融资`,
	`投资`,
})

func compile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Result is one article's filter verdict.
type Result struct {
	Passed bool
	Reason string
}

// Filter holds the configured thresholds. Zero values fall back to the
// defaults used by the original curation rules.
type Filter struct {
	TitleMinLength   int
	ContentMinLength int
	MaxAge           time.Duration

	now func() time.Time
}

// New creates a Filter. Non-positive thresholds get defaults of 10
// title runes, 50 content runes and 48 hours.
func New(titleMin, contentMin int, maxAge time.Duration) *Filter {
	if titleMin <= 0 {
		titleMin = 10
	}
	if contentMin <= 0 {
		contentMin = 50
	}
	if maxAge <= 0 {
		maxAge = 48 * time.Hour
	}
	return &Filter{
		TitleMinLength:   titleMin,
		ContentMinLength: contentMin,
		MaxAge:           maxAge,
		now:              time.Now,
	}
}

// Check evaluates one article. Order matters: length and age sanity
// checks run before keywords, and a whitelist hit overrides the
// blacklist.
func (f *Filter) Check(title, content string, publishedAt *time.Time) Result {
	if n := utf8.RuneCountInString(title); n < f.TitleMinLength {
		return Result{Reason: fmt.Sprintf("标题太短 (%d < %d)", n, f.TitleMinLength)}
	}
	if content != "" {
		if n := utf8.RuneCountInString(content); n < f.ContentMinLength {
			return Result{Reason: fmt.Sprintf("内容太短 (%d < %d)", n, f.ContentMinLength)}
		}
	}
	if publishedAt != nil {
		age := f.now().UTC().Sub(publishedAt.UTC())
		if age > f.MaxAge {
			return Result{Reason: fmt.Sprintf("内容过期 (%.1fh > %.0fh)", age.Hours(), f.MaxAge.Hours())}
		}
	}

	for _, p := range titleWhitelist {
		if p.MatchString(title) {
			return Result{Passed: true, Reason: "命中白名单关键词"}
		}
	}
	for _, p := range titleBlacklist {
		if p.MatchString(title) {
			return Result{Reason: "命中黑名单关键词"}
		}
	}

	return Result{Passed: true, Reason: "通过规则过滤"}
}

// Rejection pairs a filtered-out article with the reason it was cut.
type Rejection struct {
	Item   models.RawItem
	Reason string
}

// Run partitions a batch, preserving input order in both partitions.
func (f *Filter) Run(items []models.RawItem) (passed []models.RawItem, rejected []Rejection) {
	for _, item := range items {
		res := f.Check(item.Title, item.Content, item.PublishedAt)
		if res.Passed {
			passed = append(passed, item)
		} else {
			rejected = append(rejected, Rejection{Item: item, Reason: res.Reason})
		}
	}
	return passed, rejected
}
