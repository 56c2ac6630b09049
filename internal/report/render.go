// Package report selects the day's approved articles and renders them
// into the versioned Markdown digest.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/ai"
	"github.com/newsbrief-ai/newsbrief/internal/models"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Stats feeds the overview table.
type Stats struct {
	SourceCount int
	RecentCount int
	PassedCount int
}

// RenderInput is everything the template needs. Items must already be
// in descending score order; Render decides the final document order.
type RenderInput struct {
	Date         string
	Items        []models.ProcessedItem
	Rejected     []models.ProcessedItem
	RejectedNote string
	Highlights   string
	Insights     ai.Insights
	Stats        Stats
	MinScore     int
	Now          time.Time
}

// Render produces the Markdown document and the items in rendered
// order: the top three first, then the category groups. That order is
// what order_index records, not the raw score rank.
func Render(in RenderInput) (string, []models.ProcessedItem) {
	var b strings.Builder
	ordered := make([]models.ProcessedItem, 0, len(in.Items))

	fmt.Fprintf(&b, "# 📰 AI 技术日报 — %s\n\n", in.Date)
	fmt.Fprintf(&b, "> 来自 %d 个顶级技术博客，AI 精选 Top %d\n\n", in.Stats.SourceCount, len(in.Items))
	fmt.Fprintf(&b, "## 📝 摘要\n\n%s\n\n---\n\n", in.Highlights)

	b.WriteString("## 🏆 今日必读\n\n")
	topN := len(in.Items)
	if topN > 3 {
		topN = 3
	}
	for i := 0; i < topN; i++ {
		item := in.Items[i]
		ordered = append(ordered, item)

		fmt.Fprintf(&b, "%s **%s**\n\n", medals[i], displayTitle(item))
		fmt.Fprintf(&b, "[%s](%s) — %s · %s · ⭐ %d/30 · %s %s\n\n",
			item.Title, itemURL(item), sourceName(item),
			formatTimeAgo(item.PublishedAt, in.Now), item.TotalScore,
			item.Category.Meta().Emoji, item.Category.Meta().Label)
		fmt.Fprintf(&b, "> %s\n\n", orDefault(item.Summary, "（无摘要）"))
		fmt.Fprintf(&b, "💡 **推荐理由**: %s\n\n", orDefault(item.Reason, "值得一读"))
		fmt.Fprintf(&b, "🏷️ %s\n\n---\n\n", strings.Join(limit(item.Keywords, 4), " · "))
	}

	writeStats(&b, in)
	ordered = append(ordered, writeCategoryGroups(&b, in)...)
	writeRejected(&b, in)
	writeInsights(&b, in.Insights)

	fmt.Fprintf(&b, "*生成于 %s | 扫描 %d 源 → 精选 %d 篇*\n",
		in.Now.Format("2006-01-02 15:04"), in.Stats.SourceCount, len(in.Items))

	return b.String(), ordered
}

func writeStats(b *strings.Builder, in RenderInput) {
	rate := 0.0
	if in.Stats.RecentCount > 0 {
		rate = float64(len(in.Items)) / float64(in.Stats.RecentCount) * 100
	}

	fmt.Fprintf(b, "## 📊 今日概览\n\n**📅 %s**\n\n", in.Date)
	b.WriteString("| 信息源 | 24h新文 | 精选 |\n|:---:|:---:|:---:|\n")
	fmt.Fprintf(b, "| %d | %d | **%d** |\n\n", in.Stats.SourceCount, in.Stats.RecentCount, len(in.Items))
	fmt.Fprintf(b, "入选率: **%.1f%%** (%d/%d)\n\n", rate, len(in.Items), in.Stats.RecentCount)

	if pie := mermaidPie(in.Items); pie != "" {
		fmt.Fprintf(b, "### 分类分布\n\n%s\n\n", pie)
	}

	keywords := countKeywords(in.Items)
	if chart := keywordChart(keywords); chart != "" {
		fmt.Fprintf(b, "### 高频关键词\n\n%s\n\n", chart)
	}
	if len(keywords) > 0 {
		tags := make([]string, 0, 8)
		for _, kc := range limitKeywords(keywords, 8) {
			tags = append(tags, fmt.Sprintf("%s(%d)", kc.word, kc.count))
		}
		fmt.Fprintf(b, "🏷️ **话题标签**: %s\n\n", strings.Join(tags, " · "))
	}
	b.WriteString("---\n\n")
}

// writeCategoryGroups renders rank 4..N grouped by category in the
// fixed display order and returns them in that rendered order.
func writeCategoryGroups(b *strings.Builder, in RenderInput) []models.ProcessedItem {
	rest := in.Items
	if len(rest) > 3 {
		rest = rest[3:]
	} else {
		rest = nil
	}

	byCategory := make(map[models.Category][]models.ProcessedItem)
	for _, item := range rest {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	var ordered []models.ProcessedItem
	for _, cat := range models.CategoryOrder {
		items := byCategory[cat]
		if len(items) == 0 {
			continue
		}

		meta := cat.Meta()
		fmt.Fprintf(b, "## %s %s\n\n", meta.Emoji, meta.Label)

		for _, item := range items {
			ordered = append(ordered, item)
			fmt.Fprintf(b, "### %s\n\n", displayTitle(item))
			fmt.Fprintf(b, "[%s](%s) — **%s** · %s · ⭐ %d/30\n\n",
				item.Title, itemURL(item), sourceName(item),
				formatTimeAgo(item.PublishedAt, in.Now), item.TotalScore)
			fmt.Fprintf(b, "> %s\n\n", orDefault(item.Summary, "（无摘要）"))
			fmt.Fprintf(b, "🏷️ %s\n\n---\n\n", strings.Join(limit(item.Keywords, 4), " · "))
		}
	}
	return ordered
}

func writeRejected(b *strings.Builder, in RenderInput) {
	if len(in.Rejected) == 0 {
		return
	}

	fmt.Fprintf(b, "## 📋 本期未入选\n\n以下文章评分未达门槛（<%d/30），但可能对特定读者有价值：\n\n", in.MinScore)
	if in.RejectedNote != "" {
		fmt.Fprintf(b, "%s\n\n", in.RejectedNote)
	}
	b.WriteString("| 标题 | 简介 | 评分 |\n|:-----|:-----|:----:|\n")

	rows := in.Rejected
	if len(rows) > 15 {
		rows = rows[:15]
	}
	for _, item := range rows {
		title := truncateRunes(displayTitle(item), 40)
		brief := item.Category.Meta().Label
		if kws := limit(item.Keywords, 3); len(kws) > 0 {
			brief += " · " + strings.Join(kws, " ")
		}
		fmt.Fprintf(b, "| [%s](%s) | %s | %d/30 |\n", title, itemURL(item), brief, item.TotalScore)
	}
	b.WriteString("\n---\n\n")
}

func writeInsights(b *strings.Builder, in ai.Insights) {
	if in.TechTrend == "" && in.DeepThought == "" && in.MoneyShot == "" {
		return
	}

	b.WriteString("## 💡 今日启示\n\n")
	if in.TechTrend != "" {
		fmt.Fprintf(b, "### 🎯 技术风向\n\n%s\n\n", in.TechTrend)
	}
	if in.DeepThought != "" {
		fmt.Fprintf(b, "### 🤔 深度思考\n\n%s\n\n", in.DeepThought)
	}
	if in.MoneyShot != "" {
		fmt.Fprintf(b, "### 💰 变现机会\n\n%s\n\n", in.MoneyShot)
	}
	b.WriteString("---\n\n")
}

// mermaidPie renders the category distribution, iterating the display
// order so the chart is stable across runs.
func mermaidPie(items []models.ProcessedItem) string {
	counts := make(map[models.Category]int)
	for _, item := range items {
		counts[item.Category]++
	}
	if len(counts) == 0 {
		return ""
	}

	lines := []string{"```mermaid", "pie showData", `    title "文章分类分布"`}
	for _, cat := range models.CategoryOrder {
		if n := counts[cat]; n > 0 {
			meta := cat.Meta()
			lines = append(lines, fmt.Sprintf(`    "%s %s" : %d`, meta.Emoji, meta.Label, n))
		}
	}
	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

type keywordCount struct {
	word  string
	count int
}

// countKeywords tallies keyword frequency across the selected items,
// most frequent first with first-seen order breaking ties.
func countKeywords(items []models.ProcessedItem) []keywordCount {
	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		for _, k := range item.Keywords {
			if _, seen := counts[k]; !seen {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	out := make([]keywordCount, 0, len(order))
	for _, k := range order {
		out = append(out, keywordCount{word: k, count: counts[k]})
	}
	// Stable sort keeps first-seen order among equal counts.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].count > out[j-1].count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

func keywordChart(keywords []keywordCount) string {
	if len(keywords) == 0 {
		return ""
	}

	top := limitKeywords(keywords, 5)
	labels := make([]string, len(top))
	values := make([]int, len(top))
	maxVal := 1
	for i, kc := range top {
		labels[i] = kc.word
		values[i] = kc.count
		if kc.count > maxVal {
			maxVal = kc.count
		}
	}

	labelsJSON, _ := json.Marshal(labels)
	valuesJSON, _ := json.Marshal(values)

	lines := []string{
		"```mermaid",
		"xychart-beta horizontal",
		`    title "高频关键词"`,
		"    x-axis " + string(labelsJSON),
		fmt.Sprintf(`    y-axis "出现次数" 0 --> %d`, maxVal+1),
		"    bar " + string(valuesJSON),
		"```",
	}
	return strings.Join(lines, "\n")
}

// formatTimeAgo renders a relative timestamp against now, which is
// expected to be UTC like the stored publication times.
func formatTimeAgo(t *time.Time, now time.Time) string {
	if t == nil {
		return ""
	}

	diff := now.Sub(*t)
	switch {
	case diff >= 24*time.Hour:
		return fmt.Sprintf("%d天前", int(diff.Hours()/24))
	case diff >= time.Hour:
		return fmt.Sprintf("%d小时前", int(diff.Hours()))
	case diff >= time.Minute:
		return fmt.Sprintf("%d分钟前", int(diff.Minutes()))
	default:
		return "刚刚"
	}
}

func displayTitle(item models.ProcessedItem) string {
	if item.TitleZh != "" {
		return item.TitleZh
	}
	return orDefault(item.Title, "无标题")
}

func sourceName(item models.ProcessedItem) string {
	return orDefault(item.SourceName, "Unknown")
}

func itemURL(item models.ProcessedItem) string {
	return orDefault(item.URL, "#")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func limit(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func limitKeywords(s []keywordCount, n int) []keywordCount {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
