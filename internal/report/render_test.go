package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/ai"
	"github.com/newsbrief-ai/newsbrief/internal/models"
)

var renderNow = time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)

func sampleItems(n int) []models.ProcessedItem {
	items := make([]models.ProcessedItem, n)
	for i := range items {
		published := renderNow.Add(-time.Duration(i+1) * time.Hour)
		items[i] = models.ProcessedItem{
			ID:          int64(i + 1),
			TotalScore:  28 - i,
			Category:    models.CategoryAIML,
			Keywords:    models.Keywords{"llm"},
			TitleZh:     fmt.Sprintf("文章 %d", i),
			Summary:     "摘要内容",
			Reason:      "推荐理由",
			Title:       fmt.Sprintf("Article %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			SourceName:  "Test Feed",
			PublishedAt: &published,
		}
	}
	return items
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{72 * time.Hour, "3天前"},
		{5 * time.Hour, "5小时前"},
		{30 * time.Minute, "30分钟前"},
		{10 * time.Second, "刚刚"},
	}
	for _, tt := range tests {
		at := renderNow.Add(-tt.ago)
		if got := formatTimeAgo(&at, renderNow); got != tt.want {
			t.Errorf("formatTimeAgo(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := formatTimeAgo(nil, renderNow); got != "" {
		t.Errorf("nil time should render empty, got %q", got)
	}
}

func TestRenderStructure(t *testing.T) {
	items := sampleItems(5)
	items[3].Category = models.CategoryTools
	items[4].Category = models.CategoryEngineering

	content, _ := Render(RenderInput{
		Date:       "2026-08-29",
		Items:      items,
		Highlights: "今天的重点是模型发布。",
		Insights:   ai.Insights{TechTrend: "趋势"},
		Stats:      Stats{SourceCount: 90, RecentCount: 40, PassedCount: 5},
		MinScore:   20,
		Now:        renderNow,
	})

	for _, want := range []string{
		"# 📰 AI 技术日报 — 2026-08-29",
		"## 📝 摘要",
		"今天的重点是模型发布。",
		"## 🏆 今日必读",
		"🥇", "🥈", "🥉",
		"## 📊 今日概览",
		"pie showData",
		"xychart-beta horizontal",
		"## 💡 今日启示",
		"### 🎯 技术风向",
		"*生成于 2026-08-29 08:00",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}

	if strings.Contains(content, "### 🤔 深度思考") {
		t.Error("empty insight field rendered")
	}
	if strings.Contains(content, "## 📋 本期未入选") {
		t.Error("rejected table rendered with no rejected items")
	}
}

func TestRenderOrderHoistsTopThree(t *testing.T) {
	items := sampleItems(6)
	// Rank 4 is "tools"; ranks 5 and 6 are "engineering". The category
	// display order puts engineering before tools, so document order
	// differs from score order past the top three.
	items[3].Category = models.CategoryTools
	items[4].Category = models.CategoryEngineering
	items[5].Category = models.CategoryEngineering

	_, ordered := Render(RenderInput{
		Date:  "2026-08-29",
		Items: items,
		Stats: Stats{SourceCount: 1, RecentCount: 6},
		Now:   renderNow,
	})

	if len(ordered) != 6 {
		t.Fatalf("expected 6 ordered items, got %d", len(ordered))
	}
	wantIDs := []int64{1, 2, 3, 5, 6, 4}
	for i, item := range ordered {
		if item.ID != wantIDs[i] {
			t.Fatalf("position %d has item %d, want %d (full order %v)", i, item.ID, wantIDs[i], ids(ordered))
		}
	}
}

func ids(items []models.ProcessedItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestRenderRejectedTableCapped(t *testing.T) {
	var rejected []models.ProcessedItem
	for i := 0; i < 20; i++ {
		rejected = append(rejected, models.ProcessedItem{
			ID:         int64(100 + i),
			TotalScore: 12,
			Category:   models.CategoryOther,
			Title:      fmt.Sprintf("Rejected %d", i),
			URL:        fmt.Sprintf("https://example.com/r%d", i),
		})
	}

	content, _ := Render(RenderInput{
		Date:     "2026-08-29",
		Items:    sampleItems(3),
		Rejected: rejected,
		Stats:    Stats{SourceCount: 1, RecentCount: 23},
		MinScore: 20,
		Now:      renderNow,
	})

	if !strings.Contains(content, "## 📋 本期未入选") {
		t.Fatal("rejected table missing")
	}
	if got := strings.Count(content, "| [Rejected"); got != 15 {
		t.Errorf("rejected table should cap at 15 rows, got %d", got)
	}
}

func TestSelectSoftThreshold(t *testing.T) {
	a := &Assembler{MinScore: 20, TopN: 15}

	// Five weak articles only: all selected despite scores below the
	// threshold.
	var weak []models.ProcessedItem
	for i := 0; i < 5; i++ {
		weak = append(weak, models.ProcessedItem{ID: int64(i), TotalScore: 10 + i})
	}
	if got := a.Select(weak); len(got) != 5 {
		t.Fatalf("expected all 5 weak articles selected, got %d", len(got))
	}

	// Plenty above threshold: capped at TopN.
	var strong []models.ProcessedItem
	for i := 0; i < 30; i++ {
		strong = append(strong, models.ProcessedItem{ID: int64(i), TotalScore: 30 - i%5})
	}
	if got := a.Select(strong); len(got) != 15 {
		t.Fatalf("expected TopN selection, got %d", len(got))
	}
}
