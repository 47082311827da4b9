package domain

import "time"

type CollectionStatus string

const (
	StatusInProgress CollectionStatus = "in_progress"
	StatusSuccess    CollectionStatus = "success"
	StatusFailed     CollectionStatus = "failed"
)

// CollectionLog records one collection attempt. A nil SourceID marks an
// aggregate run over all sources.
type CollectionLog struct {
	ID                int64            `db:"id" json:"id"`
	SourceID          *int64           `db:"source_id" json:"sourceId"`
	StartedAt         time.Time        `db:"started_at" json:"startedAt"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completedAt"`
	Status            CollectionStatus `db:"status" json:"status"`
	ArticlesCollected int              `db:"articles_collected" json:"articlesCollected"`
	ErrorMessage      *string          `db:"error_message" json:"errorMessage"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
}

// CollectionLogUpdate moves a log into a terminal state. A non-zero
// StartedAt replaces the start recorded when the log was opened.
type CollectionLogUpdate struct {
	Status            CollectionStatus
	StartedAt         time.Time
	CompletedAt       time.Time
	ArticlesCollected int
	ErrorMessage      *string
}

// SourceResult is the outcome of collecting a single source in a run.
type SourceResult struct {
	SourceID          int64            `json:"sourceId"`
	SourceName        string           `json:"sourceName"`
	ArticlesCollected int              `json:"articlesCollected"`
	Status            CollectionStatus `json:"status"`
	ErrorMessage      string           `json:"errorMessage,omitempty"`
}
