package ingest

import (
	"fmt"
	"time"

	"infopulse/internal/domain/entity"
)

// Normalizer builds the Article to store from a feed reference and extracted content.
// It is pure apart from the injected clock.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer returns a Normalizer stamping InsertionDate with now.
// A nil now means time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize copies title, URL, source and publish date verbatim and stamps the insertion date.
// Empty content is replaced by the fetch-failed sentinel so a stored Article never has empty content.
func (n *Normalizer) Normalize(ref entity.ArticleReference, content string) (*entity.Article, error) {
	if err := entity.ValidateReference(ref); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	if content == "" {
		content = entity.ContentFetchFailed
	}

	article := &entity.Article{
		Title:         ref.Title,
		URL:           ref.URL,
		Content:       content,
		SourceName:    ref.SourceName,
		PublishedAt:   ref.PublishedAt,
		InsertionDate: n.now(),
	}
	if err := entity.ValidateArticle(article); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return article, nil
}
