package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	memRepo "infopulse/internal/infra/adapter/persistence/memory"
	pgRepo "infopulse/internal/infra/adapter/persistence/postgres"
	"infopulse/internal/infra/db"
	"infopulse/internal/infra/extractor"
	"infopulse/internal/infra/feed"
	"infopulse/internal/infra/publisher"
	workerPkg "infopulse/internal/infra/worker"
	"infopulse/internal/observability/logging"
	pkgconfig "infopulse/internal/pkg/config"
	"infopulse/internal/repository"
	"infopulse/internal/resilience/circuitbreaker"
	"infopulse/internal/usecase/ingest"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("schedule", workerConfig.Schedule()),
		slog.String("timezone", workerConfig.Timezone),
		slog.Bool("run_on_start", workerConfig.RunOnStart),
		slog.Int("health_port", workerConfig.HealthPort))

	store, dbBreaker, closeStore, err := initStore(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	feedBreaker := circuitbreaker.New(circuitbreaker.NewsFeedConfig())
	source, err := feed.NewSourceFromEnv(logger, feedBreaker)
	if err != nil {
		return err
	}

	extractorConfig, err := extractor.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load extractor configuration: %w", err)
	}
	extractorBreaker := circuitbreaker.New(circuitbreaker.ContentExtractorConfig())
	contentExtractor := extractor.New(extractorConfig, extractor.WithCircuitBreaker(extractorBreaker))
	logger.Info("content extractor initialized",
		slog.Int("selectors", len(extractorConfig.Policy.Selectors)),
		slog.Int("min_paragraph_length", extractorConfig.Policy.MinParagraphLength),
		slog.Int("rate_per_second", extractorConfig.RatePerSecond))

	events, closePublisher, err := initPublisher(ctx, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	ingestConfig := ingest.LoadConfigFromEnv()
	svc := ingest.NewService(source, contentExtractor, store, events, ingestConfig)
	logger.Info("ingestion pipeline initialized",
		slog.String("region", ingestConfig.Region),
		slog.Int("concurrency", ingestConfig.Concurrency),
		slog.Duration("run_timeout", ingestConfig.RunTimeout))

	scheduler, err := workerPkg.NewScheduler(svc, workerConfig, workerMetrics, logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger).
		WithReports(scheduler).
		WithBreakers(feedBreaker, extractorBreaker, dbBreaker)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	scheduler.Start(ctx)
	healthServer.SetReady(true)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("active ingestion run did not finish before shutdown", slog.Any("error", err))
	}
	return nil
}

// initStore selects the ArticleStore from STORE_DRIVER (postgres or memory).
// The returned breaker is nil for the memory store.
func initStore(ctx context.Context, logger *slog.Logger) (repository.ArticleRepository, *circuitbreaker.CircuitBreaker, func(), error) {
	driver := pkgconfig.LoadEnvString("STORE_DRIVER", "postgres")
	if err := pkgconfig.ValidateOneOf(driver, "postgres", "memory"); err != nil {
		return nil, nil, nil, fmt.Errorf("STORE_DRIVER: %w", err)
	}
	switch driver {
	case "memory":
		logger.Warn("using in-memory article store, articles are lost on exit")
		return memRepo.NewArticleRepo(), nil, func() {}, nil

	case "postgres":
		database, err := openDatabase(ctx, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.MigrateUp(ctx, database); err != nil {
			_ = database.Close()
			return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database schema ready")

		guarded := circuitbreaker.NewDBCircuitBreaker(database)
		closeFn := func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", slog.Any("error", err))
			}
		}
		return pgRepo.NewArticleRepo(guarded), guarded.Breaker(), closeFn, nil
	}
	return nil, nil, nil, fmt.Errorf("unhandled STORE_DRIVER %q", driver)
}

// openDatabase retries while Postgres is still starting, e.g. under docker compose.
func openDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	const attempts = 10
	var lastErr error
	for i := 0; i < attempts; i++ {
		database, err := db.OpenFromEnv(ctx)
		if err == nil {
			return database, nil
		}
		if errors.Is(err, db.ErrMissingDSN) {
			return nil, err
		}
		lastErr = err
		logger.Info("waiting for database, retrying in 3s",
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("database not reachable after %d attempts: %w", attempts, lastErr)
}

// initPublisher connects to REDIS_URL when set; otherwise events are dropped.
func initPublisher(ctx context.Context, logger *slog.Logger) (ingest.Publisher, func(), error) {
	redisURL := pkgconfig.LoadEnvString("REDIS_URL", "")
	if redisURL == "" {
		logger.Info("REDIS_URL not set, downstream events disabled")
		return ingest.NoopPublisher{}, func() {}, nil
	}

	client, err := publisher.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}
	channel := publisher.ChannelFromEnv()
	logger.Info("downstream events enabled", slog.String("channel", channel))

	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}
	return publisher.NewRedisPublisher(client, channel), closeFn, nil
}
