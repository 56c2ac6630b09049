package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/models"
)

type scoringArticle struct {
	Index       int
	Title       string
	Description string
	SourceName  string
}

// Scorer assigns three-dimension scores to pending articles in batched
// model calls.
type Scorer struct {
	client      Client
	batchSize   int
	concurrency int
}

// NewScorer creates a Scorer. batchSize and concurrency fall back to
// 10 articles per call and 2 in-flight calls.
func NewScorer(client Client, batchSize, concurrency int) *Scorer {
	if batchSize <= 0 {
		batchSize = 10
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Scorer{client: client, batchSize: batchSize, concurrency: concurrency}
}

// ScoreAll scores every item and returns one result per input, aligned
// by position. Items the model failed to score carry the neutral 5/5/5
// fallback so every considered article still gets a persisted verdict.
// The second return value counts those fallbacks.
func (s *Scorer) ScoreAll(ctx context.Context, items []models.RawItem) ([]models.ScoreResult, int) {
	articles := make([]scoringArticle, len(items))
	for i, item := range items {
		articles[i] = scoringArticle{
			Index:       i,
			Title:       item.Title,
			Description: item.Content,
			SourceName:  item.SourceName,
		}
	}

	var batches [][]scoringArticle
	for start := 0; start < len(articles); start += s.batchSize {
		end := start + s.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batches = append(batches, articles[start:end])
	}

	log := logger.Get()
	log.Info().Int("items", len(items)).Int("batches", len(batches)).Msg("scoring articles")

	scored := make(map[int]models.ScoreResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for i, batch := range batches {
		wg.Add(1)
		go func(idx int, batch []scoringArticle) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results, err := s.scoreBatch(ctx, batch)
			if err != nil {
				log.Warn().Err(err).Int("batch", idx+1).Msg("scoring batch failed")
				return
			}

			mu.Lock()
			for _, r := range results {
				if r.Index >= 0 && r.Index < len(items) {
					scored[r.Index] = r
				}
			}
			mu.Unlock()
		}(i, batch)
	}
	wg.Wait()

	out := make([]models.ScoreResult, len(items))
	fallbacks := 0
	for i := range items {
		if r, ok := scored[i]; ok {
			out[i] = r
		} else {
			out[i] = models.NeutralScore(i)
			fallbacks++
		}
	}
	return out, fallbacks
}

// scoreBatch sends one batch and normalizes whatever came back. A
// malformed response fails the whole batch; the caller falls back to
// neutral scores for its articles.
func (s *Scorer) scoreBatch(ctx context.Context, batch []scoringArticle) ([]models.ScoreResult, error) {
	base := batch[0].Index

	resp, err := s.client.Chat(ctx, scoringSystemPrompt, scoringPrompt(batch))
	if err != nil {
		return nil, err
	}

	raw, err := parseScoringPayload(stripCodeFences(resp))
	if err != nil {
		return nil, err
	}

	results := make([]models.ScoreResult, 0, len(raw))
	for i, entry := range raw {
		index := coerceInt(entry["index"], base+i)

		r := models.ScoreResult{
			Index:      index,
			Relevance:  clampScore(coerceInt(entry["relevance"], 5)),
			Quality:    clampScore(coerceInt(entry["quality"], 5)),
			Timeliness: clampScore(coerceInt(entry["timeliness"], 5)),
			Category:   parseCategoryField(entry["category"]),
			Keywords:   parseKeywordsField(entry["keywords"]),
		}
		results = append(results, r)
	}
	return results, nil
}

// parseScoringPayload accepts the requested {"results": [...]} object,
// falling back to a bare array for models that drop the envelope.
func parseScoringPayload(s string) ([]map[string]json.RawMessage, error) {
	var wrapper struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil && wrapper.Results != nil {
		return wrapper.Results, nil
	}

	var list []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}
	return list, nil
}

// clampScore forces a sub-score into the 1-10 range.
func clampScore(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// coerceInt accepts numbers, numeric strings, and garbage. Anything
// unparseable gets the fallback rather than aborting the batch.
func coerceInt(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			return n
		}
	}
	return fallback
}

func parseCategoryField(raw json.RawMessage) models.Category {
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return models.CategoryOther
	}
	return models.ParseCategory(str)
}

// parseKeywordsField keeps at most four non-empty keywords.
func parseKeywordsField(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}

	out := make([]string, 0, 4)
	for _, k := range list {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k)
		if len(out) == 4 {
			break
		}
	}
	return out
}
