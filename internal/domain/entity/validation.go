package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// ValidateReference checks that a feed reference carries the two fields the pipeline
// cannot do without: a non-blank title and a well-formed http(s) URL.
func ValidateReference(ref ArticleReference) error {
	if strings.TrimSpace(ref.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	return ValidateURL(ref.URL)
}

// ValidateURL validates the format of an article URL.
// It checks that the URL is well-formed, uses HTTP/HTTPS scheme, and has a valid host.
// Unlike the extractor, no DNS resolution happens here so validation stays pure.
func ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	// DoS protection: enforce maximum URL length
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("malformed URL: %v", err)}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	return nil
}

// ValidateArticle checks the invariants every stored Article must satisfy.
func ValidateArticle(a *Article) error {
	if a == nil {
		return &ValidationError{Field: "article", Message: "article is nil"}
	}
	if strings.TrimSpace(a.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(a.URL) == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}
	if a.Content == "" {
		return &ValidationError{Field: "content", Message: "content must not be empty"}
	}
	return nil
}
