package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS requisitions (
	id TEXT PRIMARY KEY,
	program_id TEXT NOT NULL,
	facility_id TEXT NOT NULL,
	processing_period_id TEXT NOT NULL,
	supervisory_node_id TEXT,
	supplying_facility_id TEXT,
	emergency INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	number_of_months_in_period INTEGER NOT NULL DEFAULT 0,
	currency TEXT NOT NULL,
	default_price_per_pack TEXT NOT NULL DEFAULT '0',
	line_items TEXT NOT NULL DEFAULT '[]',
	template TEXT,
	previous_requisitions TEXT NOT NULL DEFAULT '[]',
	stock_adjustment_reasons TEXT NOT NULL DEFAULT '[]',
	date_physical_stock_count_completed TEXT,
	created_date TEXT NOT NULL,
	modified_date TEXT NOT NULL,
	version INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requisitions_facility_program
	ON requisitions (facility_id, program_id, emergency, created_date);

CREATE TABLE IF NOT EXISTS status_changes (
	id TEXT PRIMARY KEY,
	requisition_id TEXT NOT NULL REFERENCES requisitions (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	status TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_date TEXT NOT NULL,
	previous_status_change_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_status_changes_requisition
	ON status_changes (requisition_id, position);
`

// Open connects to a sqlite database file and creates the schema
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}
