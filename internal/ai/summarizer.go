package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// Placeholder used when the highlights call fails; the report still
// renders with a generic opener.
const fallbackHighlights = "今日技术圈动态持续更新中..."

// Summary is the Chinese rendition of one approved article.
type Summary struct {
	TitleZh string `json:"title_zh"`
	Summary string `json:"summary"`
	Reason  string `json:"reason"`
}

// Insights are the three commentary sections closing a report.
type Insights struct {
	TechTrend   string `json:"tech_trend"`
	DeepThought string `json:"deep_thought"`
	MoneyShot   string `json:"money_shot"`
}

// Summarizer produces per-article summaries and the report-level
// highlight and insight sections.
type Summarizer struct {
	client      Client
	concurrency int
}

// NewSummarizer creates a Summarizer with at most concurrency
// in-flight summary calls (default 3).
func NewSummarizer(client Client, concurrency int) *Summarizer {
	if concurrency <= 0 {
		concurrency = 3
	}
	return &Summarizer{client: client, concurrency: concurrency}
}

// Summarize renders one article into Chinese. A failed call returns an
// empty Summary and the error; the caller decides whether to persist
// the article without summary text.
func (s *Summarizer) Summarize(ctx context.Context, title, content, source string) (Summary, error) {
	resp, err := s.client.Chat(ctx, summarySystemPrompt, summaryPrompt(title, content, source))
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	if err := json.Unmarshal([]byte(stripCodeFences(resp)), &out); err != nil {
		return Summary{}, fmt.Errorf("parse summary response: %w", err)
	}
	return out, nil
}

// SummarizeAll summarizes the given articles concurrently, returning
// one Summary per input aligned by position. A failed article yields an
// empty Summary, never a shifted result set.
func (s *Summarizer) SummarizeAll(ctx context.Context, items []models.RawItem) []Summary {
	log := logger.Get()
	out := make([]Summary, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for i, item := range items {
		wg.Add(1)
		go func(i int, item models.RawItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			summary, err := s.Summarize(ctx, item.Title, item.Content, item.SourceName)
			if err != nil {
				log.Warn().Err(err).Str("title", item.Title).Msg("summary failed")
				return
			}
			out[i] = summary
		}(i, item)
	}
	wg.Wait()

	return out
}

// Highlights produces the report's opening paragraph. On failure it
// returns a placeholder so the report never opens with an empty
// section.
func (s *Summarizer) Highlights(ctx context.Context, items []models.ProcessedItem) string {
	if len(items) == 0 {
		return fallbackHighlights
	}

	resp, err := s.client.Chat(ctx, summarySystemPrompt, highlightsPrompt(items))
	if err != nil {
		logger.Get().Warn().Err(err).Msg("highlights generation failed")
		return fallbackHighlights
	}
	return stripCodeFences(resp)
}

// GenerateInsights produces the closing commentary. On any failure it
// returns empty Insights; the renderer omits the section entirely.
func (s *Summarizer) GenerateInsights(ctx context.Context, items []models.ProcessedItem) Insights {
	if len(items) == 0 {
		return Insights{}
	}

	resp, err := s.client.Chat(ctx, summarySystemPrompt, insightsPrompt(items))
	if err != nil {
		logger.Get().Warn().Err(err).Msg("insights generation failed")
		return Insights{}
	}

	var out Insights
	if err := json.Unmarshal([]byte(stripCodeFences(resp)), &out); err != nil {
		logger.Get().Warn().Err(err).Msg("insights response unparseable")
		return Insights{}
	}
	return out
}

// SummarizeRejected produces a one-line note on the articles that did
// not make the cut, contrasted against the selected ones. No rejects
// short-circuits without a model call.
func (s *Summarizer) SummarizeRejected(ctx context.Context, selected, rejected []models.ProcessedItem) string {
	if len(rejected) == 0 {
		return ""
	}

	resp, err := s.client.Chat(ctx, summarySystemPrompt, rejectedSummaryPrompt(selected, rejected))
	if err != nil {
		logger.Get().Warn().Err(err).Msg("rejected summary failed")
		return ""
	}
	return stripCodeFences(resp)
}
