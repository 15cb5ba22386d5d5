// Package repository declares the persistence ports the ingestion pipeline depends on.
package repository

import (
	"context"
	"errors"

	"infopulse/internal/domain/entity"
)

// ErrDuplicateKey is returned by Create when an Article with the same URL already exists.
// It is the authoritative duplicate signal; callers count it rather than treat it as a failure.
var ErrDuplicateKey = errors.New("article with this url already exists")

// ArticleRepository is the ArticleStore the pipeline writes to.
//
// Create must enforce URL uniqueness itself so that concurrent writers of the same URL
// never produce two rows. Update must never modify InsertionDate.
type ArticleRepository interface {
	// Create stores a new article and assigns its ID.
	// Returns ErrDuplicateKey if the URL is already stored.
	Create(ctx context.Context, article *entity.Article) error
	// FindByURL returns the article stored under url, or entity.ErrNotFound.
	FindByURL(ctx context.Context, url string) (*entity.Article, error)
	// Get returns the article with the given ID, or entity.ErrNotFound.
	Get(ctx context.Context, id int64) (*entity.Article, error)
	// List returns up to limit articles ordered by insertion date, newest first.
	// A non-positive limit returns every article.
	List(ctx context.Context, limit int) ([]*entity.Article, error)
	Update(ctx context.Context, article *entity.Article) error
	Delete(ctx context.Context, id int64) error
}
