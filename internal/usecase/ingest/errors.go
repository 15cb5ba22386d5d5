// Package ingest implements one ingestion run: fetch the latest references from the
// news source, extract each article's text, normalize, deduplicate and store it.
package ingest

import "errors"

// Sentinel errors for ingestion operations.
var (
	// ErrSourceUnavailable indicates the news feed could not be read: network failure,
	// non-2xx status, malformed body or an error payload from the API.
	// A run that hits it stores nothing and reports a source error.
	ErrSourceUnavailable = errors.New("news source unavailable")

	// ErrInvalidReference indicates a feed reference without a usable title or URL.
	ErrInvalidReference = errors.New("invalid article reference")

	// ErrStorageUnavailable wraps ArticleStore failures other than duplicates.
	ErrStorageUnavailable = errors.New("article store unavailable")
)
