package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion tracks the ledger schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS credits (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    session_id TEXT NOT NULL DEFAULT '',
    operator TEXT NOT NULL DEFAULT '',
    server_no INTEGER NOT NULL,
    product_name TEXT NOT NULL DEFAULT '',
    plu_no TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    remaining INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL CHECK (status IN ('sent', 'cancelled')),
    is_cancellation INTEGER NOT NULL DEFAULT 0,
    message TEXT NOT NULL DEFAULT '',
    cancellation_response TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    cancelled_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_credits_active ON credits(session_id, plu_no, status);
`

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("applying schema v%d: %w", SchemaVersion, err)
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, strftime('%s','now'))`,
		SchemaVersion)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}
