package ingest

import (
	"context"
	"errors"
	"sync"

	"infopulse/internal/domain/entity"
	"infopulse/internal/repository"
)

// DuplicateFilter classifies references whose URL is already stored or already
// being processed in the current run. One filter lives for exactly one run.
//
// It is advisory: ArticleRepository.Create is the authority and reports
// repository.ErrDuplicateKey for races the filter cannot see.
type DuplicateFilter struct {
	store repository.ArticleRepository

	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewDuplicateFilter(store repository.ArticleRepository) *DuplicateFilter {
	return &DuplicateFilter{
		store:   store,
		claimed: make(map[string]struct{}),
	}
}

// Claim marks url as taken by the caller for this run.
// It returns false if another reference in the run already claimed it.
func (f *DuplicateFilter) Claim(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.claimed[url]; ok {
		return false
	}
	f.claimed[url] = struct{}{}
	return true
}

// IsDuplicate reports whether an Article with url is already stored.
func (f *DuplicateFilter) IsDuplicate(ctx context.Context, url string) (bool, error) {
	_, err := f.store.FindByURL(ctx, url)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, entity.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
