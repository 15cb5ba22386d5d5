// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"infopulse/internal/domain/entity"
	"infopulse/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a UNIQUE constraint hit.
const uniqueViolation = "23505"

const articleColumns = `id, title, url, content, source_name, summary, keywords, published_at, insertion_date`

// DBTX is the subset of *sql.DB the repository needs. It is satisfied by *sql.DB
// and by circuitbreaker.DBCircuitBreaker.
type DBTX interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type ArticleRepo struct {
	db DBTX
}

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func scanArticle(s *sql.Rows) (*entity.Article, error) {
	var (
		article     entity.Article
		summary     sql.NullString
		keywords    []byte
		publishedAt sql.NullTime
	)
	if err := s.Scan(&article.ID, &article.Title, &article.URL, &article.Content,
		&article.SourceName, &summary, &keywords, &publishedAt, &article.InsertionDate); err != nil {
		return nil, err
	}
	article.Summary = summary.String
	article.PublishedAt = publishedAt.Time
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &article.Keywords); err != nil {
			return nil, fmt.Errorf("decode keywords: %w", err)
		}
	}
	return &article, nil
}

// nullTime stores an unknown publish date as NULL rather than year 1.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func encodeKeywords(keywords []string) ([]byte, error) {
	if keywords == nil {
		keywords = []string{}
	}
	return json.Marshal(keywords)
}

// Create inserts the article unless its URL is already stored.
// Of two concurrent writers of one URL, exactly one gets a RETURNING row;
// the other gets ErrDuplicateKey.
func (repo *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	const query = `
INSERT INTO articles
       (title, url, content, source_name, summary, keywords, published_at, insertion_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (url) DO NOTHING
RETURNING id`
	keywords, err := encodeKeywords(article.Keywords)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query,
		article.Title, article.URL, article.Content, article.SourceName,
		article.Summary, keywords, nullTime(article.PublishedAt), article.InsertionDate,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("Create: %w", err)
		}
		return repository.ErrDuplicateKey
	}
	var id int64
	if err := rows.Scan(&id); err != nil {
		return fmt.Errorf("Create: Scan: %w", err)
	}
	article.ID = id
	return nil
}

// findOne runs a query expected to match at most one article.
func (repo *ArticleRepo) findOne(ctx context.Context, query string, arg any) (*entity.Article, error) {
	rows, err := repo.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanArticle(rows)
}

func (repo *ArticleRepo) FindByURL(ctx context.Context, url string) (*entity.Article, error) {
	const query = `SELECT ` + articleColumns + `
FROM articles
WHERE url = $1
LIMIT 1`
	article, err := repo.findOne(ctx, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByURL: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `SELECT ` + articleColumns + `
FROM articles
WHERE id = $1
LIMIT 1`
	article, err := repo.findOne(ctx, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) List(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + `
FROM articles
ORDER BY insertion_date DESC`
	args := []any{}
	if limit > 0 {
		query += `
LIMIT $1`
		args = append(args, limit)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// Update rewrites the mutable fields of an article. insertion_date is never written.
func (repo *ArticleRepo) Update(ctx context.Context, article *entity.Article) error {
	const query = `
UPDATE articles SET
       title        = $1,
       url          = $2,
       content      = $3,
       source_name  = $4,
       summary      = $5,
       keywords     = $6,
       published_at = $7
WHERE id = $8`
	keywords, err := encodeKeywords(article.Keywords)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	res, err := repo.db.ExecContext(ctx, query,
		article.Title, article.URL, article.Content, article.SourceName,
		article.Summary, keywords, nullTime(article.PublishedAt), article.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateKey
		}
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM articles WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}
