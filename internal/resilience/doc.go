// Package resilience provides the fault tolerance patterns used by the ingestion worker.
//
// The package supports:
//   - Circuit breakers for the news feed API, article page fetches and the database
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.NewsFeedConfig())
//	err := cb.Run(func() error {
//	    return retry.WithBackoff(ctx, retry.NewsFeedConfig(), fetch)
//	})
package resilience
