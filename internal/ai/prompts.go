package ai

import (
	"fmt"
	"strings"

	"github.com/newsbrief-ai/newsbrief/internal/models"
)

// Content sent to the model is truncated so a handful of very long
// articles cannot blow the context window.
const (
	scoringContentLimit = 300
	summaryContentLimit = 2000
)

const scoringSystemPrompt = `你是一个资深的技术内容评估专家，负责为技术日报筛选文章。
你的读者是中文技术从业者，关注 AI、工程实践、开发工具和行业动态。
严格按照要求返回 JSON，不要输出任何其他内容。`

const summarySystemPrompt = `你是一个专业的技术新闻编辑，擅长用简洁准确的中文总结英文技术文章。
严格按照要求返回 JSON，不要输出任何其他内容。`

// scoringPrompt asks for three sub-scores per article in one call.
// The index field ties each result back to its article; the model is
// never trusted to preserve order.
func scoringPrompt(articles []scoringArticle) string {
	var b strings.Builder
	b.WriteString("请为以下文章逐篇评分。每篇文章三个维度，均为 1-10 的整数：\n")
	b.WriteString("- relevance: 与技术从业者的相关程度\n")
	b.WriteString("- quality: 内容深度与可信度\n")
	b.WriteString("- timeliness: 时效性与新闻价值\n\n")
	b.WriteString("同时给出分类 category，必须是以下之一：ai-ml, security, engineering, tools, opinion, other\n")
	b.WriteString("以及最多 4 个关键词 keywords。\n\n")
	b.WriteString("文章列表：\n\n")

	for _, a := range articles {
		b.WriteString(fmt.Sprintf("[%d] 标题: %s\n", a.Index, a.Title))
		if a.Description != "" {
			b.WriteString(fmt.Sprintf("    简介: %s\n", truncate(a.Description, scoringContentLimit)))
		}
		b.WriteString(fmt.Sprintf("    来源: %s\n\n", a.SourceName))
	}

	b.WriteString(`请返回 JSON 对象，results 数组中每篇文章一个对象，格式如下：
{"results": [{"index": 0, "relevance": 8, "quality": 7, "timeliness": 9, "category": "ai-ml", "keywords": ["OpenAI", "GPT"]}]}`)
	return b.String()
}

// summaryPrompt asks for the Chinese rendition of one approved article.
func summaryPrompt(title, content, source string) string {
	if content == "" {
		content = "（无内容）"
	}
	return fmt.Sprintf(`请阅读以下文章并生成中文摘要信息：

标题: %s
来源: %s
内容: %s

请返回 JSON 对象，格式如下：
{"title_zh": "不超过30字的中文标题", "summary": "100字以内的中文摘要，突出关键信息", "reason": "一句话说明为什么值得一读"}`,
		title, source, truncate(content, summaryContentLimit))
}

// highlightsPrompt asks for the report's opening paragraph.
func highlightsPrompt(items []models.ProcessedItem) string {
	var b strings.Builder
	b.WriteString("以下是今日技术日报的入选文章：\n\n")
	for i, item := range items {
		title := item.TitleZh
		if title == "" {
			title = item.Title
		}
		b.WriteString(fmt.Sprintf("%d. [%s] %s（%d/30分）\n", i+1, item.Category, title, item.TotalScore))
	}
	b.WriteString("\n请用 2-3 句话概括今天的整体技术动态，作为日报开头的摘要。直接返回摘要文本，不要任何前缀。")
	return b.String()
}

// insightsPrompt asks for the three closing commentary sections.
func insightsPrompt(items []models.ProcessedItem) string {
	var b strings.Builder
	b.WriteString("以下是今日技术日报的入选文章：\n\n")
	for i, item := range items {
		title := item.TitleZh
		if title == "" {
			title = item.Title
		}
		b.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, item.Category, title))
		if item.Summary != "" {
			b.WriteString(fmt.Sprintf("   %s\n", item.Summary))
		}
	}
	b.WriteString(`
请基于这些文章给出三段观察，每段 1-2 句话。返回 JSON 对象：
{"tech_trend": "今天最值得注意的技术风向", "deep_thought": "一个值得深入思考的问题", "money_shot": "其中蕴含的商业或变现机会"}`)
	return b.String()
}

// rejectedSummaryPrompt asks for a one-line note on what was cut. The
// top selected articles go in as contrast so the model can explain the
// gap instead of describing the rejects in isolation.
func rejectedSummaryPrompt(selected, rejected []models.ProcessedItem) string {
	var b strings.Builder
	b.WriteString("本期日报已入选的代表文章：\n\n")
	for i, item := range topScored(selected, 5) {
		b.WriteString(fmt.Sprintf("%d. %s（%d/30分）\n", i+1, item.Title, item.TotalScore))
	}
	b.WriteString("\n以下文章本期未入选日报：\n\n")
	for i, item := range topScored(rejected, 5) {
		b.WriteString(fmt.Sprintf("%d. %s（%d/30分）\n", i+1, item.Title, item.TotalScore))
	}
	b.WriteString("\n请对比两组文章，用一句话说明未入选这批的整体情况（例如主题分布或与入选文章的差距）。直接返回文本。")
	return b.String()
}

func topScored(items []models.ProcessedItem, n int) []models.ProcessedItem {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
