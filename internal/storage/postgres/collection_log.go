package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"news_collector/internal/domain"
)

// ErrLogNotInProgress is returned by Finish when the log does not exist or
// already reached a terminal state.
var ErrLogNotInProgress = errors.New("collection log is not in progress")

const collectionLogColumns = `id, source_id, started_at, completed_at, status, articles_collected, error_message, created_at`

type CollectionLogStore struct {
	db *sqlx.DB
}

func NewCollectionLogStore(db *sqlx.DB) *CollectionLogStore {
	return &CollectionLogStore{db: db}
}

func (s *CollectionLogStore) ListStartedBetween(ctx context.Context, start, end time.Time) ([]domain.CollectionLog, error) {
	query := `SELECT ` + collectionLogColumns + `
		FROM collection_logs
		WHERE started_at >= $1 AND started_at < $2
		ORDER BY started_at, id`

	var logs []domain.CollectionLog
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &logs, query, start, end); err != nil {
		return nil, err
	}
	return logs, nil
}

// ListRecent returns the newest logs first, optionally limited to one source.
func (s *CollectionLogStore) ListRecent(ctx context.Context, limit int, sourceID *int64) ([]domain.CollectionLog, error) {
	query := `SELECT ` + collectionLogColumns + `
		FROM collection_logs
		WHERE ($2::bigint IS NULL OR source_id = $2)
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	logs := []domain.CollectionLog{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &logs, query, limit, sourceID); err != nil {
		return nil, err
	}
	return logs, nil
}

// Create inserts a log and returns its id. A zero id with a nil error means
// the database yielded no row.
func (s *CollectionLogStore) Create(ctx context.Context, log *domain.CollectionLog) (int64, error) {
	query := `
		INSERT INTO collection_logs (source_id, started_at, status, articles_collected, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		log.SourceID,
		log.StartedAt,
		log.Status,
		log.ArticlesCollected,
		log.ErrorMessage,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

// Finish moves an in-progress log into a terminal state.
func (s *CollectionLogStore) Finish(ctx context.Context, id int64, u domain.CollectionLogUpdate) error {
	query := `
		UPDATE collection_logs
		SET status = $2, completed_at = $3, articles_collected = $4, error_message = $5,
			started_at = COALESCE($7, started_at)
		WHERE id = $1 AND status = $6`

	var startedAt *time.Time
	if !u.StartedAt.IsZero() {
		startedAt = &u.StartedAt
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		id,
		u.Status,
		u.CompletedAt,
		u.ArticlesCollected,
		u.ErrorMessage,
		domain.StatusInProgress,
		startedAt,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("log %d: %w", id, ErrLogNotInProgress)
	}
	return nil
}
