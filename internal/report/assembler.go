package report

import (
	"context"
	"fmt"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/ai"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/models"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

// Assembler builds, persists and renders the daily report.
type Assembler struct {
	store      *store.Store
	summarizer *ai.Summarizer

	MinScore int
	TopN     int
	Window   time.Duration

	now func() time.Time
}

// NewAssembler wires the report stage. minScore is the soft selection
// threshold in the 3-30 range; topN the target article count.
func NewAssembler(st *store.Store, summarizer *ai.Summarizer, minScore, topN int, window time.Duration) *Assembler {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Assembler{
		store:      st,
		summarizer: summarizer,
		MinScore:   minScore,
		TopN:       topN,
		Window:     window,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Select applies the soft-threshold selection rule: prefer articles at
// or above MinScore, but when inventory is short of TopN, backfill with
// lower-scored articles rather than shipping a thin report. Input must
// be sorted by score descending; the order is preserved.
func (a *Assembler) Select(candidates []models.ProcessedItem) []models.ProcessedItem {
	above := 0
	for _, item := range candidates {
		if item.TotalScore >= a.MinScore {
			above++
		}
	}

	n := above
	if n < a.TopN {
		n = len(candidates)
	}
	if n > a.TopN {
		n = a.TopN
	}
	return candidates[:n]
}

// Generate assembles the report for the given date (YYYY-MM-DD),
// persists it with the next version number and returns it. The caller
// handles writing the Markdown to disk or sending it out.
func (a *Assembler) Generate(ctx context.Context, date string) (*models.Report, error) {
	log := logger.Get()

	candidates, err := a.store.ListApprovedItems(ctx, a.Window, a.TopN*2)
	if err != nil {
		return nil, fmt.Errorf("load approved items: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoItems
	}

	selected := a.Select(candidates)
	log.Info().Int("candidates", len(candidates)).Int("selected", len(selected)).Msg("articles selected")

	highlights := a.summarizer.Highlights(ctx, selected)
	insights := a.summarizer.GenerateInsights(ctx, selected)

	rejected, err := a.store.ListRejectedItems(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("load rejected items: %w", err)
	}
	rejectedNote := a.summarizer.SummarizeRejected(ctx, selected, rejected)

	stats, err := a.gatherStats(ctx)
	if err != nil {
		return nil, err
	}

	content, ordered := Render(RenderInput{
		Date:         date,
		Items:        selected,
		Rejected:     rejected,
		RejectedNote: rejectedNote,
		Highlights:   highlights,
		Insights:     insights,
		Stats:        stats,
		MinScore:     a.MinScore,
		Now:          a.now(),
	})

	itemIDs := make([]int64, len(ordered))
	for i, item := range ordered {
		itemIDs[i] = item.ID
	}

	rep := &models.Report{
		ReportDate: date,
		Title:      fmt.Sprintf("AI 技术日报 — %s", date),
		Content:    content,
		Highlights: highlights,
	}
	if err := a.store.CreateReport(ctx, rep, itemIDs); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	log.Info().Int64("report_id", rep.ID).Int("version", rep.Version).Int("items", len(itemIDs)).Msg("report created")
	return rep, nil
}

func (a *Assembler) gatherStats(ctx context.Context) (Stats, error) {
	sources, err := a.store.CountSources(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count sources: %w", err)
	}
	recent, err := a.store.CountRecentItems(ctx, a.Window)
	if err != nil {
		return Stats{}, fmt.Errorf("count recent items: %w", err)
	}
	passed, err := a.store.CountProcessedAtLeast(ctx, a.MinScore)
	if err != nil {
		return Stats{}, fmt.Errorf("count passed items: %w", err)
	}
	return Stats{SourceCount: sources, RecentCount: recent, PassedCount: passed}, nil
}

// ErrNoItems signals that no approved articles exist for the window.
// The pipeline treats it as a no-op, not a failure.
var ErrNoItems = fmt.Errorf("no approved items in window")
