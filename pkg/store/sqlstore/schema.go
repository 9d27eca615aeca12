package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates the tables used by the store.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// The statements are valid for both postgres and sqlite. Timestamps are
// unix milliseconds so both drivers scan them the same way.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS layout (
    community_id TEXT PRIMARY KEY,
    background TEXT NOT NULL DEFAULT '',
    version BIGINT NOT NULL,
    widgets TEXT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS widget (
    community_id TEXT NOT NULL,
    type TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (community_id, type, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_widget_community_id ON widget(community_id)`,
}
