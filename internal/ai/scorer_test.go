package ai

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// fakeClient returns canned responses keyed by call order, or delegates
// to fn when set.
type fakeClient struct {
	fn    func(system, user string) (string, error)
	calls atomic.Int64
}

func (f *fakeClient) Chat(_ context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	return f.fn(system, user)
}

func rawItems(n int) []models.RawItem {
	items := make([]models.RawItem, n)
	for i := range items {
		items[i] = models.RawItem{
			ID:         int64(i + 1),
			Title:      fmt.Sprintf("Article %d", i),
			Content:    "content",
			SourceName: "Test Feed",
		}
	}
	return items
}

func TestScoreAllClampsAndDefaults(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return `[
			{"index": 0, "relevance": 0, "quality": 15, "timeliness": -3, "category": "ai-ml", "keywords": ["a"]},
			{"index": 1, "relevance": "abc", "quality": 7, "timeliness": "9", "category": "nonsense", "keywords": []}
		]`, nil
	}}

	results, fallbacks := NewScorer(client, 10, 2).ScoreAll(context.Background(), rawItems(2))
	if fallbacks != 0 {
		t.Fatalf("expected no fallbacks, got %d", fallbacks)
	}

	for _, r := range results {
		for _, v := range []int{r.Relevance, r.Quality, r.Timeliness} {
			if v < 1 || v > 10 {
				t.Errorf("sub-score %d outside [1,10] in %+v", v, r)
			}
		}
		if total := r.Total(); total != r.Relevance+r.Quality+r.Timeliness {
			t.Errorf("total %d does not match components of %+v", total, r)
		}
	}

	if results[0].Relevance != 1 || results[0].Quality != 10 || results[0].Timeliness != 1 {
		t.Errorf("clamping wrong: %+v", results[0])
	}
	if results[1].Relevance != 5 {
		t.Errorf("non-numeric score should default to 5, got %d", results[1].Relevance)
	}
	if results[1].Timeliness != 9 {
		t.Errorf("numeric string should parse, got %d", results[1].Timeliness)
	}
	if results[1].Category != models.CategoryOther {
		t.Errorf("unknown category should coerce to other, got %s", results[1].Category)
	}
}

func TestScoreAllKeywordsCapped(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return `[{"index": 0, "relevance": 8, "quality": 8, "timeliness": 8, "category": "tools",
			"keywords": ["a", "b", "c", "d", "e", "f"]}]`, nil
	}}

	results, _ := NewScorer(client, 10, 2).ScoreAll(context.Background(), rawItems(1))
	if len(results[0].Keywords) != 4 {
		t.Fatalf("expected 4 keywords, got %v", results[0].Keywords)
	}
}

func TestScoreAllAcceptsResultsEnvelope(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return `{"results": [
			{"index": 0, "relevance": 9, "quality": 8, "timeliness": 7, "category": "ai-ml", "keywords": ["LLM"]},
			{"index": 1, "relevance": 6, "quality": 6, "timeliness": 6, "category": "tools", "keywords": []}
		]}`, nil
	}}

	results, fallbacks := NewScorer(client, 10, 2).ScoreAll(context.Background(), rawItems(2))
	if fallbacks != 0 {
		t.Fatalf("object-wrapped results should parse, got %d fallbacks", fallbacks)
	}
	if results[0].Total() != 24 || results[0].Category != models.CategoryAIML {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Category != models.CategoryTools {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestScoreAllBatchFailureFallsBackNeutral(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return "I cannot produce JSON today.", nil
	}}

	items := rawItems(3)
	results, fallbacks := NewScorer(client, 10, 2).ScoreAll(context.Background(), items)
	if fallbacks != len(items) {
		t.Fatalf("expected %d fallbacks, got %d", len(items), fallbacks)
	}
	for i, r := range results {
		if r.Relevance != 5 || r.Quality != 5 || r.Timeliness != 5 {
			t.Errorf("item %d not neutral: %+v", i, r)
		}
		if r.Category != models.CategoryOther {
			t.Errorf("item %d fallback category = %s", i, r.Category)
		}
		if r.Total() != 15 {
			t.Errorf("neutral total should be 15, got %d", r.Total())
		}
	}
}

func TestScoreAllBatchCount(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return `[]`, nil
	}}

	scorer := NewScorer(client, 10, 2)
	scorer.ScoreAll(context.Background(), rawItems(25))
	if got := client.calls.Load(); got != 3 {
		t.Fatalf("25 items at batch size 10 should make 3 calls, got %d", got)
	}
}

func TestScoreAllStripsCodeFences(t *testing.T) {
	client := &fakeClient{fn: func(_, _ string) (string, error) {
		return "```json\n[{\"index\": 0, \"relevance\": 9, \"quality\": 9, \"timeliness\": 9, \"category\": \"security\", \"keywords\": []}]\n```", nil
	}}

	results, fallbacks := NewScorer(client, 10, 2).ScoreAll(context.Background(), rawItems(1))
	if fallbacks != 0 {
		t.Fatalf("fenced JSON should parse, got %d fallbacks", fallbacks)
	}
	if results[0].Category != models.CategorySecurity {
		t.Errorf("category = %s", results[0].Category)
	}
}
