package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_collector/internal/domain"
)

// Collector runs one collection pass over all sources.
type Collector interface {
	Collect(ctx context.Context) ([]domain.SourceResult, error)
}

type Scheduler struct {
	collector  Collector
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(collector Collector, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		collector:  collector,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs a collection immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.runCollect(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCollect(ctx)
		}
	}
}

func (s *Scheduler) runCollect(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	started := time.Now()
	results, err := s.collector.Collect(runCtx)
	if err != nil {
		s.logger.Error("collection failed", "error", err)
		return
	}

	var articles, failed int
	for _, r := range results {
		articles += r.ArticlesCollected
		if r.Status == domain.StatusFailed {
			failed++
		}
	}

	s.logger.Info("collection completed",
		"sources", len(results),
		"failed_sources", failed,
		"articles", articles,
		"duration", time.Since(started),
	)
}
