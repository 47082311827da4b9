package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"news_collector/internal/config"
	"news_collector/internal/domain"
)

// HarvesterFactory builds the harvester for a source. Configuration errors
// are returned here and fail only that source.
type HarvesterFactory func(src domain.Source) (Harvester, error)

type itemOutcome int

const (
	itemInserted itemOutcome = iota
	itemDuplicate
	itemFailed
)

type sourceStats struct {
	found      int
	inserted   int
	duplicates int
	failed     int
}

// Collector runs collection over all active sources, at most once per
// source per run window.
type Collector struct {
	sources    SourceStore
	logs       CollectionLogStore
	articles   ArticleStore
	txManager  TransactionManager
	harvesters HarvesterFactory
	publisher  Publisher
	recorder   Recorder
	logger     *slog.Logger
	config     config.CollectionConfig
	location   *time.Location
	now        func() time.Time

	// serializes overlapping runs (scheduler tick and API trigger)
	mu sync.Mutex
}

func NewCollector(
	sources SourceStore,
	logs CollectionLogStore,
	articles ArticleStore,
	txManager TransactionManager,
	harvesters HarvesterFactory,
	publisher Publisher,
	recorder Recorder,
	logger *slog.Logger,
	cfg config.CollectionConfig,
) *Collector {
	return &Collector{
		sources:    sources,
		logs:       logs,
		articles:   articles,
		txManager:  txManager,
		harvesters: harvesters,
		publisher:  publisher,
		recorder:   recorder,
		logger:     logger.With("component", "collector"),
		config:     cfg,
		location:   cfg.Location(),
		now:        time.Now,
	}
}

// Collect harvests every active source that has no run in the current
// window. Per-item and per-source failures are contained in the results;
// only failures before any source is processed are returned as errors.
func (c *Collector) Collect(ctx context.Context) ([]domain.SourceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger.With("run_id", uuid.NewString())
	now := c.now()
	results := []domain.SourceResult{}

	active, err := c.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	if len(active) == 0 {
		logger.Info("no active sources")
		return results, nil
	}

	start, end := RunWindow(now, c.location)
	pending, err := c.pendingSources(ctx, active, start, end)
	if err != nil {
		return nil, fmt.Errorf("list collection logs: %w", err)
	}
	if len(pending) == 0 {
		logger.Info("all sources already collected in window",
			"active", len(active),
			"window_start", start,
		)
		return results, nil
	}

	logger.Info("starting collection",
		"active", len(active),
		"pending", len(pending),
		"window_start", start,
	)

	logIDs, err := c.openLogs(ctx, pending, now)
	if err != nil {
		return nil, fmt.Errorf("create collection logs: %w", err)
	}

	for _, src := range pending {
		logID := logIDs[src.ID]
		if logID == 0 {
			logger.Error("no collection log created for source", "source", src.Code)
			continue
		}
		results = append(results, c.collectSource(ctx, logger, src, logID))
	}

	logger.Info("collection finished", "sources", len(results))

	return results, nil
}

// RunWindow returns the calendar day containing now in loc, as [start, end).
func RunWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func (c *Collector) pendingSources(ctx context.Context, active []domain.Source, start, end time.Time) ([]domain.Source, error) {
	logs, err := c.logs.ListStartedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	attempted := make(map[int64]struct{}, len(logs))
	for _, l := range logs {
		if l.SourceID != nil {
			attempted[*l.SourceID] = struct{}{}
		}
	}

	var pending []domain.Source
	for _, src := range active {
		if _, ok := attempted[src.ID]; ok {
			c.logger.Debug("source already collected in window", "source", src.Code)
			continue
		}
		pending = append(pending, src)
	}
	return pending, nil
}

func (c *Collector) openLogs(ctx context.Context, sources []domain.Source, startedAt time.Time) (map[int64]int64, error) {
	ids := make(map[int64]int64, len(sources))

	err := c.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, src := range sources {
			sourceID := src.ID
			id, err := c.logs.Create(txCtx, &domain.CollectionLog{
				SourceID:  &sourceID,
				StartedAt: startedAt,
				Status:    domain.StatusInProgress,
			})
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Code, err)
			}
			ids[src.ID] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (c *Collector) collectSource(ctx context.Context, logger *slog.Logger, src domain.Source, logID int64) domain.SourceResult {
	started := c.now()
	logger = logger.With("source", src.Code, "collection_log_id", logID)
	logger.Info("collecting source", "name", src.Name, "url", src.BaseURL)

	result := domain.SourceResult{
		SourceID:   src.ID,
		SourceName: src.Name,
	}

	stats, err := c.harvest(ctx, logger, src, logID)
	update := domain.CollectionLogUpdate{StartedAt: started, CompletedAt: c.now()}
	if err != nil {
		msg := err.Error()
		logger.Error("source collection failed", "error", err)
		result.Status = domain.StatusFailed
		result.ErrorMessage = msg
		update.Status = domain.StatusFailed
		update.ErrorMessage = &msg
	} else {
		logger.Info("source collected",
			"found", stats.found,
			"inserted", stats.inserted,
			"duplicates", stats.duplicates,
			"failed", stats.failed,
		)
		result.Status = domain.StatusSuccess
		result.ArticlesCollected = stats.inserted
		update.Status = domain.StatusSuccess
		update.ArticlesCollected = stats.inserted
	}

	// the log must reach a terminal state even if the run context expired
	if err := c.logs.Finish(context.WithoutCancel(ctx), logID, update); err != nil {
		logger.Error("failed to finish collection log", "error", err)
		if result.Status == domain.StatusSuccess {
			result.Status = domain.StatusFailed
			result.ErrorMessage = fmt.Sprintf("finish collection log: %v", err)
		}
	}

	if c.recorder != nil {
		c.recorder.ObserveSource(result, c.now().Sub(started))
	}

	return result
}

func (c *Collector) harvest(ctx context.Context, logger *slog.Logger, src domain.Source, logID int64) (sourceStats, error) {
	var stats sourceStats

	h, err := c.harvesters(src)
	if err != nil {
		return stats, err
	}

	items, err := h.List(ctx)
	if err != nil {
		return stats, err
	}
	stats.found = len(items)
	logger.Debug("listed items", "count", len(items))

	for _, item := range items {
		switch c.saveItem(ctx, logger, h, src, logID, item) {
		case itemInserted:
			stats.inserted++
		case itemDuplicate:
			stats.duplicates++
		case itemFailed:
			stats.failed++
		}
	}

	return stats, nil
}

func (c *Collector) saveItem(ctx context.Context, logger *slog.Logger, h Harvester, src domain.Source, logID int64, item domain.Item) itemOutcome {
	exists, err := c.articles.ExistsByURL(ctx, item.URL)
	if err != nil {
		logger.Warn("failed to check article url", "url", item.URL, "error", err)
		return itemFailed
	}
	if exists {
		return itemDuplicate
	}

	article := &domain.Article{
		SourceID:        src.ID,
		CollectionLogID: &logID,
		Title:           item.Title,
		URL:             item.URL,
	}

	if c.config.FetchContent {
		content, err := h.Content(ctx, item.URL)
		if err != nil {
			logger.Warn("failed to fetch article content", "url", item.URL, "error", err)
		} else {
			article.Content = &content
		}
	}

	id, err := c.articles.Insert(ctx, article)
	if errors.Is(err, domain.ErrDuplicateURL) {
		return itemDuplicate
	}
	if err != nil {
		logger.Warn("failed to insert article", "url", item.URL, "error", err)
		return itemFailed
	}
	article.ID = id

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, article); err != nil {
			logger.Warn("failed to publish article", "url", item.URL, "error", err)
		}
	}

	return itemInserted
}
