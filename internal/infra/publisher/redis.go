// Package publisher hands newly stored articles to downstream processing over Redis pub/sub.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"infopulse/internal/domain/entity"
	pkgconfig "infopulse/internal/pkg/config"
	"infopulse/internal/usecase/ingest"
)

// EventArticleIngested is the event name carried by every message.
const EventArticleIngested = "article.ingested"

// DefaultChannel is used when REDIS_CHANNEL is unset.
const DefaultChannel = "articles.ingested"

const connectionTimeout = 2 * time.Second

// ErrMissingRedisURL is returned by NewRedisClient for an empty URL.
var ErrMissingRedisURL = errors.New("redis url is required")

// IngestedEvent is the JSON payload published for a new article.
type IngestedEvent struct {
	Event      string `json:"event"`
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	SourceName string `json:"source_name"`

	// PublishedAt is omitted when the feed gave no usable date.
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	InsertionDate time.Time  `json:"insertion_date"`
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, ErrMissingRedisURL
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisPublisher implements ingest.Publisher.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher publishes on channel, or DefaultChannel when it is empty.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// ChannelFromEnv returns REDIS_CHANNEL or DefaultChannel.
func ChannelFromEnv() string {
	return pkgconfig.LoadEnvString("REDIS_CHANNEL", DefaultChannel)
}

var _ ingest.Publisher = (*RedisPublisher)(nil)

// PublishIngested publishes one article.ingested event.
func (p *RedisPublisher) PublishIngested(ctx context.Context, article *entity.Article) error {
	event := IngestedEvent{
		Event:         EventArticleIngested,
		ID:            article.ID,
		URL:           article.URL,
		Title:         article.Title,
		SourceName:    article.SourceName,
		InsertionDate: article.InsertionDate,
	}
	if !article.PublishedAt.IsZero() {
		published := article.PublishedAt
		event.PublishedAt = &published
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	if receivers == 0 {
		slog.Debug("ingested event had no subscribers",
			slog.String("channel", p.channel),
			slog.Int64("article_id", article.ID))
	}
	return nil
}
