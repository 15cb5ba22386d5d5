package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"infopulse/internal/infra/scraper"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/resilience/retry"
	"infopulse/internal/usecase/ingest"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestRSSSource_FetchLatest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestAgent" {
			t.Errorf("User-Agent = %q, want TestAgent", got)
		}
		rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Article 1</title>
      <link>https://example.com/article1</link>
      <description>Description 1</description>
      <author>jane@example.com (Jane)</author>
      <category>World</category>
      <pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>https://example.com/article2</link>
      <description>Description 2</description>
    </item>
  </channel>
</rss>`
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss))
	}))
	defer server.Close()

	source := scraper.NewRSSSource(server.URL, "TestAgent", &http.Client{Timeout: 10 * time.Second})

	refs, err := source.FetchLatest(context.Background(), "us")
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs length = %d, want 2", len(refs))
	}

	first := refs[0]
	if first.Title != "Article 1" || first.URL != "https://example.com/article1" {
		t.Errorf("refs[0] = %q %q", first.Title, first.URL)
	}
	if first.SourceName != "Test Feed" {
		t.Errorf("SourceName = %q, want Test Feed", first.SourceName)
	}
	if first.Description != "Description 1" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.Category != "World" {
		t.Errorf("Category = %q, want World", first.Category)
	}
	if !first.PublishedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", first.PublishedAt)
	}
	if !refs[1].PublishedAt.IsZero() {
		t.Errorf("refs[1].PublishedAt = %v, want zero", refs[1].PublishedAt)
	}
}

func TestRSSSource_FetchLatest_Atom(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atom := `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2024-01-01T00:00:00Z</updated>
  <entry>
    <title>Atom Article 1</title>
    <link href="https://example.com/atom1"/>
    <updated>2024-01-03T00:00:00Z</updated>
    <author><name>John</name></author>
    <summary>Atom Summary 1</summary>
  </entry>
</feed>`
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(atom))
	}))
	defer server.Close()

	refs, err := scraper.NewRSSSource(server.URL, "", http.DefaultClient).FetchLatest(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("refs length = %d, want 1", len(refs))
	}
	if refs[0].Author != "John" {
		t.Errorf("Author = %q, want John", refs[0].Author)
	}
	if !refs[0].PublishedAt.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v, want updated date", refs[0].PublishedAt)
	}
}

func TestRSSSource_FetchLatest_InvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	source := scraper.NewRSSSource(server.URL, "", http.DefaultClient).WithRetryConfig(fastRetry())
	_, err := source.FetchLatest(context.Background(), "")
	if !errors.Is(err, ingest.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestRSSSource_FetchLatest_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>T</title>
<item><title>A</title><link>https://example.com/a</link></item></channel></rss>`))
	}))
	defer server.Close()

	source := scraper.NewRSSSource(server.URL, "", http.DefaultClient).WithRetryConfig(fastRetry())
	refs, err := source.FetchLatest(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchLatest() error = %v", err)
	}
	if len(refs) != 1 || calls.Load() != 2 {
		t.Fatalf("refs=%d calls=%d, want 1 and 2", len(refs), calls.Load())
	}
}

func TestRSSSource_FetchLatest_ClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	source := scraper.NewRSSSource(server.URL, "", &http.Client{Timeout: 50 * time.Millisecond}).
		WithRetryConfig(fastRetry())
	if source.Timeout() != 50*time.Millisecond {
		t.Fatalf("Timeout() = %v", source.Timeout())
	}

	start := time.Now()
	_, err := source.FetchLatest(context.Background(), "")
	if !errors.Is(err, ingest.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("FetchLatest took %v, the client timeout was not applied", elapsed)
	}
}

func TestRSSSource_FetchLatest_NotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := scraper.NewRSSSource(server.URL, "", http.DefaultClient).WithRetryConfig(fastRetry())
	_, err := source.FetchLatest(context.Background(), "")

	var httpErr *retry.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want HTTP 404", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestRSSSource_FetchLatest_CircuitOpen(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "test-feed",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      1,
	})
	source := scraper.NewRSSSource(server.URL, "", http.DefaultClient).
		WithCircuitBreaker(cb).
		WithRetryConfig(retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1})

	_, _ = source.FetchLatest(context.Background(), "")
	if !cb.IsOpen() {
		t.Fatal("breaker not open after failure")
	}

	_, err := source.FetchLatest(context.Background(), "")
	if !circuitbreaker.IsRejected(err) || !errors.Is(err, ingest.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want rejected source error", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}
