package domain

import "time"

type Article struct {
	ID                  int64      `db:"id" json:"id"`
	SourceID            int64      `db:"source_id" json:"sourceId"`
	CollectionLogID     *int64     `db:"collection_log_id" json:"collectionLogId,omitempty"`
	Title               string     `db:"title" json:"title"`
	URL                 string     `db:"url" json:"url"` // unique across all sources
	Content             *string    `db:"content" json:"content,omitempty"`
	IsRead              bool       `db:"is_read" json:"isRead"`
	OriginalPublishedAt *time.Time `db:"original_published_at" json:"originalPublishedAt,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
}

// Item is a listing entry extracted from a source page, before it is stored.
type Item struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ArticleFilter narrows article listings. Empty SourceCode and nil bounds
// match everything.
type ArticleFilter struct {
	IsRead     bool
	SourceCode string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
