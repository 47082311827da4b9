package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_collector/internal/domain"
)

const uniqueViolation = "23505"

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE url = $1)`, url)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Insert stores a new article. A URL that is already stored yields
// domain.ErrDuplicateURL.
func (s *ArticleStore) Insert(ctx context.Context, article *domain.Article) (int64, error) {
	query := `
		INSERT INTO articles (
			source_id, collection_log_id, title, url, content, original_published_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		article.SourceID,
		article.CollectionLogID,
		article.Title,
		article.URL,
		article.Content,
		article.OriginalPublishedAt,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("%s: %w", article.URL, domain.ErrDuplicateURL)
		}
		return 0, err
	}

	return id, nil
}

// List returns articles newest first.
func (s *ArticleStore) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	query := `
		SELECT a.id, a.source_id, a.collection_log_id, a.title, a.url, a.content,
			a.is_read, a.original_published_at, a.created_at
		FROM articles a
		JOIN news_sources s ON s.id = a.source_id
		WHERE a.is_read = $1
			AND ($2::text = '' OR s.code = $2)
			AND ($3::timestamptz IS NULL OR a.created_at >= $3)
			AND ($4::timestamptz IS NULL OR a.created_at <= $4)
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $5 OFFSET $6`

	articles := []domain.Article{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query,
		filter.IsRead,
		filter.SourceCode,
		filter.From,
		filter.To,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	return articles, nil
}
