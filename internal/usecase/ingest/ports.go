package ingest

import (
	"context"

	"infopulse/internal/domain/entity"
)

// SourceClient fetches the latest article references for a region from the news feed.
// Implementations return references in source order and wrap failures with ErrSourceUnavailable.
type SourceClient interface {
	FetchLatest(ctx context.Context, region string) ([]entity.ArticleReference, error)
}

// Extraction strategies that are not selectors.
const (
	StrategyParagraphFallback = "paragraph_fallback"
	StrategyNoContent         = "no_content"
	StrategyFetchFailed       = "fetch_failed"
)

// Extraction is the outcome of scraping one article page.
// Content is never empty: failures carry one of the entity sentinels.
// Strategy names the selector that matched, or one of the Strategy constants.
type Extraction struct {
	Content  string
	Strategy string
}

// ContentExtractor turns an article URL into plain text. It never fails outward;
// degraded results are reported through Extraction.Strategy.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) Extraction
}

// Publisher hands newly stored articles to downstream processing.
type Publisher interface {
	PublishIngested(ctx context.Context, article *entity.Article) error
}

// NoopPublisher discards events. It is used when no downstream channel is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishIngested(context.Context, *entity.Article) error { return nil }
