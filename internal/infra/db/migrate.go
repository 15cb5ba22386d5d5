package db

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	name string
	stmt string
}

// schema is applied in order on every start, so each statement must be idempotent.
var schema = []migration{
	{"articles table", `
CREATE TABLE IF NOT EXISTS articles (
    id             BIGSERIAL PRIMARY KEY,
    title          TEXT NOT NULL,
    url            TEXT NOT NULL UNIQUE,
    content        TEXT NOT NULL,
    source_name    TEXT NOT NULL DEFAULT '',
    summary        TEXT,
    keywords       JSONB NOT NULL DEFAULT '[]'::jsonb,
    published_at   TIMESTAMPTZ,
    insertion_date TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT chk_articles_content_not_empty CHECK (content <> '')
)`},
	// List orders by insertion_date DESC
	{"insertion_date index", `CREATE INDEX IF NOT EXISTS idx_articles_insertion_date ON articles(insertion_date DESC)`},
	{"published_at index", `CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`},
	{"source_name index", `CREATE INDEX IF NOT EXISTS idx_articles_source_name ON articles(source_name)`},
}

// MigrateUp creates the articles schema, stopping at the first failing step.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	for _, m := range schema {
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
	}
	return nil
}
