// Package pipeline orchestrates the collect, process and generate
// stages of the daily digest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/ai"
	"github.com/newsbrief-ai/newsbrief/internal/archive"
	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/dedup"
	"github.com/newsbrief-ai/newsbrief/internal/feed"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/models"
	"github.com/newsbrief-ai/newsbrief/internal/notify"
	"github.com/newsbrief-ai/newsbrief/internal/report"
	"github.com/newsbrief-ai/newsbrief/internal/rules"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

// CollectResult summarizes one collection run.
type CollectResult struct {
	Sources    int    `json:"sources"`
	Failed     int    `json:"failed"`
	Fetched    int    `json:"fetched"`
	CacheHits  int    `json:"cache_hits"`
	Duplicates int    `json:"duplicates"`
	Stale      int    `json:"stale"`
	Stored     int    `json:"stored"`
	Message    string `json:"message,omitempty"`
}

// ProcessResult summarizes one scoring run.
type ProcessResult struct {
	Pending    int    `json:"pending"`
	Filtered   int    `json:"filtered"`
	Scored     int    `json:"scored"`
	Fallbacks  int    `json:"fallbacks"`
	Summarized int    `json:"summarized"`
	Rejected   int    `json:"rejected"`
	Message    string `json:"message,omitempty"`
}

// GenerateResult summarizes one report generation.
type GenerateResult struct {
	ReportID int64  `json:"report_id,omitempty"`
	Version  int    `json:"version,omitempty"`
	Items    int    `json:"items"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RunResult is the full pipeline outcome.
type RunResult struct {
	Collect  CollectResult  `json:"collect"`
	Process  ProcessResult  `json:"process"`
	Generate GenerateResult `json:"generate"`
}

// Pipeline wires the stages together. Each stage can also run alone
// from the CLI or the admin API.
type Pipeline struct {
	cfg        *config.Config
	store      *store.Store
	collector  *feed.Collector
	filter     *rules.Filter
	scorer     *ai.Scorer
	summarizer *ai.Summarizer
	assembler  *report.Assembler
	archiver   *archive.Archiver
	emailer    *notify.Emailer
}

// New assembles a Pipeline. archiver and emailer may be nil; the
// generate stage then skips file export and mail delivery.
func New(
	cfg *config.Config,
	st *store.Store,
	collector *feed.Collector,
	filter *rules.Filter,
	scorer *ai.Scorer,
	summarizer *ai.Summarizer,
	assembler *report.Assembler,
	archiver *archive.Archiver,
	emailer *notify.Emailer,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		collector:  collector,
		filter:     filter,
		scorer:     scorer,
		summarizer: summarizer,
		assembler:  assembler,
		archiver:   archiver,
		emailer:    emailer,
	}
}

// RunCollect fetches all enabled sources, deduplicates against the
// recent corpus and stores the survivors as pending raw items. Having
// no sources configured is a no-op, not an error.
func (p *Pipeline) RunCollect(ctx context.Context) (CollectResult, error) {
	log := logger.Get()

	sources, err := p.store.ListSources(ctx, true)
	if err != nil {
		return CollectResult{}, fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		return CollectResult{Message: "no sources configured"}, nil
	}

	items, cstats := p.collector.CollectAll(ctx, sources)
	res := CollectResult{
		Sources:   cstats.Sources,
		Failed:    cstats.Failed,
		Fetched:   cstats.Fetched,
		CacheHits: cstats.SeenInCache,
	}

	window := time.Duration(p.cfg.CollectWindowHours) * time.Hour
	recent, err := p.store.ListRecentItems(ctx, window, 1000)
	if err != nil {
		return res, fmt.Errorf("load recent corpus: %w", err)
	}

	d := dedup.New(p.cfg.TitleSimilarity)
	d.Seed(recent)
	unique, duplicates := d.Run(items)
	res.Duplicates = len(duplicates)
	for _, dup := range duplicates {
		log.Debug().Str("title", dup.Item.Title).Str("reason", dup.Reason).Msg("duplicate dropped")
	}

	// Feeds replay their whole backlog on every fetch. Drop articles
	// published before the collection window; items without a publish
	// timestamp stay in.
	cutoff := time.Now().UTC().Add(-window)
	fresh := unique[:0]
	for _, item := range unique {
		if item.PublishedAt != nil && item.PublishedAt.Before(cutoff) {
			res.Stale++
			continue
		}
		fresh = append(fresh, item)
	}
	unique = fresh

	sourceIDs := make(map[string]int64, len(sources))
	for _, s := range sources {
		sourceIDs[s.Name] = s.ID
	}

	var stored []models.CollectedItem
	for _, item := range unique {
		raw := &models.RawItem{
			Title:       item.Title,
			Content:     item.Content,
			URL:         item.URL,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
		}
		if id, ok := sourceIDs[item.SourceName]; ok {
			raw.SourceID = &id
		}

		err := p.store.InsertRawItem(ctx, raw)
		if errors.Is(err, store.ErrDuplicateURL) {
			res.Duplicates++
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("title", item.Title).Msg("store item failed")
			continue
		}
		stored = append(stored, item)
	}
	res.Stored = len(stored)

	p.collector.MarkSeen(ctx, stored, p.cfg.SeenTTL)

	if len(cstats.FetchedIDs) > 0 {
		if err := p.store.TouchSources(ctx, cstats.FetchedIDs, time.Now().UTC()); err != nil {
			log.Warn().Err(err).Msg("touch sources failed")
		}
	}

	log.Info().Int("stored", res.Stored).Int("duplicates", res.Duplicates).Int("stale", res.Stale).Msg("collect stage finished")
	return res, nil
}

// RunProcess rule-filters the pending items, scores the survivors in
// batches, summarizes the selected top articles and persists one
// ProcessedItem per considered article. No pending items is a no-op.
func (p *Pipeline) RunProcess(ctx context.Context) (ProcessResult, error) {
	log := logger.Get()

	window := time.Duration(p.cfg.ProcessWindowHours) * time.Hour
	pending, err := p.store.ListPendingItems(ctx, window, p.cfg.ProcessLimit)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list pending items: %w", err)
	}
	if len(pending) == 0 {
		return ProcessResult{Message: "no pending items to process"}, nil
	}

	res := ProcessResult{Pending: len(pending)}

	passed, rejected := p.filter.Run(pending)
	res.Filtered = len(rejected)
	if len(rejected) > 0 {
		ids := make([]int64, len(rejected))
		for i, r := range rejected {
			ids[i] = r.Item.ID
			log.Debug().Str("title", r.Item.Title).Str("reason", r.Reason).Msg("item filtered")
		}
		if err := p.store.SetItemStatus(ctx, ids, models.StatusDiscarded); err != nil {
			return res, fmt.Errorf("discard filtered items: %w", err)
		}
	}
	if len(passed) == 0 {
		res.Message = "all pending items filtered out"
		return res, nil
	}

	scores, fallbacks := p.scorer.ScoreAll(ctx, passed)
	res.Scored = len(scores)
	res.Fallbacks = fallbacks

	type scoredItem struct {
		item  models.RawItem
		score models.ScoreResult
	}
	scored := make([]scoredItem, len(passed))
	for i := range passed {
		scored[i] = scoredItem{item: passed[i], score: scores[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score.Total() > scored[j].score.Total()
	})

	// Soft selection: with inventory at or under the target, everything
	// gets a summary; otherwise only the top N do.
	topN := p.cfg.TopN
	if len(scored) < topN {
		topN = len(scored)
	}
	top := scored[:topN]

	topItems := make([]models.RawItem, len(top))
	for i, s := range top {
		topItems[i] = s.item
	}
	summaries := p.summarizer.SummarizeAll(ctx, topItems)

	for i, s := range top {
		if err := p.insertProcessed(ctx, s.item, s.score, &summaries[i]); err != nil {
			return res, err
		}
		res.Summarized++
	}
	for _, s := range scored[topN:] {
		if err := p.insertProcessed(ctx, s.item, s.score, nil); err != nil {
			return res, err
		}
		res.Rejected++
	}

	ids := make([]int64, len(passed))
	for i, item := range passed {
		ids[i] = item.ID
	}
	if err := p.store.SetItemStatus(ctx, ids, models.StatusScored); err != nil {
		return res, fmt.Errorf("mark items scored: %w", err)
	}

	log.Info().
		Int("pending", res.Pending).
		Int("filtered", res.Filtered).
		Int("summarized", res.Summarized).
		Int("rejected", res.Rejected).
		Msg("process stage finished")
	return res, nil
}

// insertProcessed stores one scoring verdict. summary is nil for
// articles that did not make the cut; their text fields stay empty.
func (p *Pipeline) insertProcessed(ctx context.Context, item models.RawItem, score models.ScoreResult, summary *ai.Summary) error {
	processed := &models.ProcessedItem{
		RawItemID:  item.ID,
		Relevance:  score.Relevance,
		Quality:    score.Quality,
		Timeliness: score.Timeliness,
		TotalScore: score.Total(),
		Category:   score.Category,
		Keywords:   models.Keywords(score.Keywords),
	}
	if summary != nil {
		processed.Approved = true
		processed.TitleZh = summary.TitleZh
		processed.Summary = summary.Summary
		processed.Reason = summary.Reason
	}

	if err := p.store.InsertProcessedItem(ctx, processed); err != nil {
		return fmt.Errorf("store processed item: %w", err)
	}
	return nil
}

// RunGenerate assembles today's report, exports the Markdown file and
// sends it out when email is configured. No approved articles in the
// window is a no-op.
func (p *Pipeline) RunGenerate(ctx context.Context) (GenerateResult, error) {
	log := logger.Get()
	date := time.Now().UTC().Format("2006-01-02")

	rep, err := p.assembler.Generate(ctx, date)
	if errors.Is(err, report.ErrNoItems) {
		return GenerateResult{Message: "no approved items in window"}, nil
	}
	if err != nil {
		return GenerateResult{}, err
	}

	res := GenerateResult{ReportID: rep.ID, Version: rep.Version}

	items, err := p.store.ListReportItems(ctx, rep.ID)
	if err == nil {
		res.Items = len(items)
	}

	if p.archiver != nil {
		path, err := p.archiver.Save(ctx, date, rep.Content)
		if err != nil {
			log.Warn().Err(err).Msg("report export failed")
		} else {
			res.Path = path
		}
	}

	if p.emailer != nil && p.emailer.Configured() {
		if err := p.emailer.SendReport(date, rep.Content); err != nil {
			log.Warn().Err(err).Msg("report email failed")
		}
	}

	return res, nil
}

// ResetSeenCache drops all seen-URL marks so the next collect sweep
// re-evaluates every feed entry.
func (p *Pipeline) ResetSeenCache(ctx context.Context) error {
	return p.collector.ResetSeen(ctx)
}

// RunAll executes the three stages back to back.
func (p *Pipeline) RunAll(ctx context.Context) (RunResult, error) {
	var out RunResult
	var err error

	if out.Collect, err = p.RunCollect(ctx); err != nil {
		return out, err
	}
	if out.Process, err = p.RunProcess(ctx); err != nil {
		return out, err
	}
	if out.Generate, err = p.RunGenerate(ctx); err != nil {
		return out, err
	}
	return out, nil
}
