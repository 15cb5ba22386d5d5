// Package entity defines the core domain entities and validation logic for the application.
// It contains the ingestion pipeline's business objects, ArticleReference and Article,
// along with their validation rules and domain-specific errors.
package entity

import "time"

// Extraction sentinels are stored as Article content when scraping fails, so that
// downstream consumers can tell "no content found" apart from a parsing bug.
const (
	// ContentFetchFailed is stored when the article page could not be fetched or parsed.
	ContentFetchFailed = "Failed to fetch or parse the content. Possible issues: CORS, paywall, or invalid URL."

	// ContentNotFound is stored when the page was fetched but no article text was found.
	ContentNotFound = "No article content found. The website may use a non-standard structure or block scraping."
)

// ArticleReference is a lightweight article descriptor returned by a news feed,
// prior to full-text extraction. It is produced per fetch cycle and never persisted directly.
type ArticleReference struct {
	Title       string
	URL         string
	PublishedAt time.Time
	SourceName  string

	// Optional feed metadata carried through to logs and downstream events.
	Author      string
	Description string
	ImageURL    string
	Category    string
}

// Article represents a stored news article.
// URL is the unique key; Content is never empty; InsertionDate is set once at creation.
// Summary and Keywords are owned by the downstream processing stage.
type Article struct {
	ID            int64
	Title         string
	URL           string
	Content       string
	SourceName    string
	Summary       string
	Keywords      []string
	PublishedAt   time.Time
	InsertionDate time.Time
}

// IsSentinelContent reports whether content is one of the extraction sentinels.
func IsSentinelContent(content string) bool {
	return content == ContentFetchFailed || content == ContentNotFound
}
