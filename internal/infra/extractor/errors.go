package extractor

import "errors"

// Fetch failures. Extract never returns them; they are logged and mapped to the
// fetch-failed sentinel.
var (
	// ErrInvalidURL indicates that the URL is malformed or uses an unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private address (SSRF prevention).
	ErrPrivateIP = errors.New("private IP access denied")

	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the page exceeded MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	ErrTimeout = errors.New("request timeout")

	// ErrStatus indicates a non-2xx response.
	ErrStatus = errors.New("unexpected HTTP status")
)
