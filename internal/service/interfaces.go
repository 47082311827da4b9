package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_collector/internal/domain"
)

type SourceStore interface {
	ListActive(ctx context.Context) ([]domain.Source, error)
}

type CollectionLogStore interface {
	ListStartedBetween(ctx context.Context, start, end time.Time) ([]domain.CollectionLog, error)
	Create(ctx context.Context, log *domain.CollectionLog) (int64, error)
	Finish(ctx context.Context, id int64, update domain.CollectionLogUpdate) error
}

type ArticleStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, article *domain.Article) (int64, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Harvester interface {
	List(ctx context.Context) ([]domain.Item, error)
	Content(ctx context.Context, url string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, article *domain.Article) error
	Close() error
}

type Recorder interface {
	ObserveSource(result domain.SourceResult, duration time.Duration)
}
