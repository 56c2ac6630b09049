// Package scheduler drives the recurring collect sweeps and the daily
// report run on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/pipeline"
)

const jobTimeout = 30 * time.Minute

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	pipeline *pipeline.Pipeline
}

func New(cfg *config.Config, p *pipeline.Pipeline) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		pipeline: p,
	}
}

// Start registers the jobs and launches the cron loop. Does nothing
// when the scheduler is disabled in config.
func (s *Scheduler) Start() error {
	if !s.cfg.SchedulerEnabled {
		logger.Get().Info().Msg("scheduler disabled")
		return nil
	}

	collectSpec := fmt.Sprintf("@every %dh", s.cfg.CollectIntervalHours)
	if _, err := s.cron.AddFunc(collectSpec, s.runCollect); err != nil {
		return fmt.Errorf("schedule collect: %w", err)
	}

	dailySpec := fmt.Sprintf("0 %d * * *", s.cfg.ReportHour)
	if _, err := s.cron.AddFunc(dailySpec, s.runDaily); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}

	s.cron.Start()
	logger.Get().Info().
		Str("collect", collectSpec).
		Str("daily", dailySpec).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Get().Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runCollect() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := s.pipeline.RunCollect(ctx)
	if err != nil {
		logger.Get().Error().Err(err).Msg("scheduled collect failed")
		return
	}
	logger.Get().Info().
		Int("fetched", res.Fetched).
		Int("stored", res.Stored).
		Msg("Scheduled collect finished")
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := s.pipeline.RunAll(ctx)
	if err != nil {
		logger.Get().Error().Err(err).Msg("scheduled daily run failed")
		return
	}
	logger.Get().Info().
		Int64("report_id", res.Generate.ReportID).
		Int("items", res.Generate.Items).
		Msg("Scheduled daily run finished")
}
