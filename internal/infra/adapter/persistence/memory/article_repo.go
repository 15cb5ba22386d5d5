// Package memory provides an in-process ArticleRepository for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"infopulse/internal/domain/entity"
	"infopulse/internal/repository"
)

// ArticleRepo keeps articles in maps guarded by a single mutex.
// The url index gives Create the same uniqueness guarantee as the Postgres constraint.
type ArticleRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*entity.Article
	byURL  map[string]int64
}

func NewArticleRepo() *ArticleRepo {
	return &ArticleRepo{
		byID:  make(map[int64]*entity.Article),
		byURL: make(map[string]int64),
	}
}

var _ repository.ArticleRepository = (*ArticleRepo)(nil)

func clone(a *entity.Article) *entity.Article {
	c := *a
	if a.Keywords != nil {
		c.Keywords = append([]string(nil), a.Keywords...)
	}
	return &c
}

func (r *ArticleRepo) Create(ctx context.Context, article *entity.Article) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	// mirrors the NOT NULL and CHECK constraints of the postgres schema
	if err := entity.ValidateArticle(article); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byURL[article.URL]; ok {
		return repository.ErrDuplicateKey
	}
	r.nextID++
	article.ID = r.nextID
	r.byID[article.ID] = clone(article)
	r.byURL[article.URL] = article.ID
	return nil
}

func (r *ArticleRepo) FindByURL(ctx context.Context, url string) (*entity.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FindByURL: %w", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byURL[url]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return clone(a), nil
}

func (r *ArticleRepo) List(ctx context.Context, limit int) ([]*entity.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	r.mu.RLock()
	articles := make([]*entity.Article, 0, len(r.byID))
	for _, a := range r.byID {
		articles = append(articles, clone(a))
	}
	r.mu.RUnlock()

	// newest first; ID breaks ties between articles inserted in the same instant
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].InsertionDate.Equal(articles[j].InsertionDate) {
			return articles[i].InsertionDate.After(articles[j].InsertionDate)
		}
		return articles[i].ID > articles[j].ID
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// Update replaces the stored article but keeps its original InsertionDate.
func (r *ArticleRepo) Update(ctx context.Context, article *entity.Article) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if err := entity.ValidateArticle(article); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[article.ID]
	if !ok {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	if owner, taken := r.byURL[article.URL]; taken && owner != article.ID {
		return repository.ErrDuplicateKey
	}

	updated := clone(article)
	updated.InsertionDate = current.InsertionDate
	delete(r.byURL, current.URL)
	r.byURL[updated.URL] = updated.ID
	r.byID[updated.ID] = updated
	return nil
}

func (r *ArticleRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	delete(r.byURL, a.URL)
	delete(r.byID, id)
	return nil
}

// Len reports how many articles are stored.
func (r *ArticleRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
