package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newsbrief-ai/newsbrief/internal/ai"
	"github.com/newsbrief-ai/newsbrief/internal/archive"
	"github.com/newsbrief-ai/newsbrief/internal/cache"
	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/feed"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/notify"
	"github.com/newsbrief-ai/newsbrief/internal/report"
	"github.com/newsbrief-ai/newsbrief/internal/rules"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

// Bootstrap wires a full Pipeline from config: seen cache (Redis when
// configured, in-process otherwise), feed collector, rule filter, LLM
// scorer and summarizer, report assembler, archiver and emailer. The
// returned cleanup closes the cache connection.
func Bootstrap(ctx context.Context, cfg *config.Config, st *store.Store) (*Pipeline, func(), error) {
	log := logger.Get()

	var seen cache.SeenCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process seen cache")
			seen = cache.NewMemoryCache()
		} else {
			seen = rc
		}
	} else {
		seen = cache.NewMemoryCache()
	}

	client, err := ai.NewChatClient(ai.Options{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.LLMBaseURL,
		Timeout:   cfg.LLMTimeout,
		MaxTokens: cfg.LLMMaxTokens,
	})
	if err != nil {
		seen.Close()
		return nil, nil, fmt.Errorf("llm client: %w", err)
	}

	fetcher := feed.NewFetcher(cfg.FeedTimeout)
	collector := feed.NewCollector(fetcher, seen, cfg.FeedConcurrency)
	filter := rules.New(cfg.FilterTitleMinLength, cfg.FilterContentMinLength,
		time.Duration(cfg.FilterMaxAgeHours)*time.Hour)
	scorer := ai.NewScorer(client, cfg.ScoringBatchSize, cfg.ScoringConcurrency)
	summarizer := ai.NewSummarizer(client, cfg.SummaryConcurrency)
	assembler := report.NewAssembler(st, summarizer, cfg.MinScore, cfg.TopN,
		time.Duration(cfg.ReportWindowHours)*time.Hour)

	var uploader archive.Uploader
	if cfg.S3Bucket != "" {
		up, err := archive.NewS3Uploader(ctx, archive.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Warn().Err(err).Msg("S3 uploader unavailable, archiving locally only")
		} else {
			uploader = up
		}
	}
	archiver := archive.New(cfg.OutputDir, uploader)

	emailer := notify.NewEmailer(notify.Config{
		Enabled:    cfg.EmailEnabled,
		Sender:     cfg.EmailSender,
		Password:   cfg.EmailPassword,
		Recipients: splitRecipients(cfg.EmailRecipients),
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		SSL:        cfg.SMTPSSL,
	})

	p := New(cfg, st, collector, filter, scorer, summarizer, assembler, archiver, emailer)
	cleanup := func() {
		if err := seen.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing seen cache")
		}
	}
	return p, cleanup, nil
}

func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
