// Package db opens the PostgreSQL connection pool and applies the schema.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pkgconfig "infopulse/internal/pkg/config"
)

// ErrMissingDSN is returned when DATABASE_URL is not configured.
var ErrMissingDSN = errors.New("DATABASE_URL not set")

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
// The ingestion pool is small: at most INGEST_CONCURRENCY writers plus the dedupe lookups.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Open creates the pgx-backed pool for dsn, applies pool settings from the
// environment and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := getConnectionConfigFromEnv()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established successfully")
	return db, nil
}

// OpenFromEnv opens the pool using DATABASE_URL. There is no default DSN.
func OpenFromEnv(ctx context.Context) (*sql.DB, error) {
	return Open(ctx, os.Getenv("DATABASE_URL"))
}

// getConnectionConfigFromEnv reads pool settings from the environment.
// Invalid or non-positive values fall back to the defaults with a warning.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()

	positiveInt := func(v int) error { return pkgconfig.ValidateIntRange(v, 1, 1000) }

	results := map[string]pkgconfig.ConfigLoadResult{}

	r := pkgconfig.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, positiveInt)
	cfg.MaxOpenConns = r.Value.(int)
	results["DB_MAX_OPEN_CONNS"] = r

	r = pkgconfig.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, positiveInt)
	cfg.MaxIdleConns = r.Value.(int)
	results["DB_MAX_IDLE_CONNS"] = r

	r = pkgconfig.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, pkgconfig.ValidatePositiveDuration)
	cfg.ConnMaxLifetime = r.Value.(time.Duration)
	results["DB_CONN_MAX_LIFETIME"] = r

	r = pkgconfig.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, pkgconfig.ValidatePositiveDuration)
	cfg.ConnMaxIdleTime = r.Value.(time.Duration)
	results["DB_CONN_MAX_IDLE_TIME"] = r

	for key, res := range results {
		res.LogWarnings(nil, "database pool configuration fallback", key)
	}

	return cfg
}
