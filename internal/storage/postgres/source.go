package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"news_collector/internal/domain"
)

type sourceRow struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Code      string         `db:"code"`
	BaseURL   string         `db:"base_url"`
	Config    types.JSONText `db:"config"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r sourceRow) toDomain() domain.Source {
	return domain.Source{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		BaseURL:   r.BaseURL,
		Config:    json.RawMessage(r.Config),
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

// ListActive returns active sources in id order.
func (s *SourceStore) ListActive(ctx context.Context) ([]domain.Source, error) {
	query := `
		SELECT id, name, code, base_url, config, is_active, created_at
		FROM news_sources
		WHERE is_active = TRUE
		ORDER BY id`

	var rows []sourceRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for _, r := range rows {
		sources = append(sources, r.toDomain())
	}
	return sources, nil
}
