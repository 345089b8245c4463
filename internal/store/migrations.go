package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for all Pitwall tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS queue_entries (
		team_id         TEXT PRIMARY KEY,
		arrival_time    TEXT NOT NULL,
		priority_re_run INTEGER NOT NULL DEFAULT 0,
		stage           TEXT NOT NULL DEFAULT 'WAITING'
	)`,

	`CREATE TABLE IF NOT EXISTS run_history (
		team_id   TEXT PRIMARY KEY,
		run_count INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_queue_entries_stage ON queue_entries(stage)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	// The priority flag arrived after the first deployments; databases
	// created before it need the column added in place.
	{
		table:    "queue_entries",
		column:   "priority_re_run",
		alterSQL: "ALTER TABLE queue_entries ADD COLUMN priority_re_run INTEGER NOT NULL DEFAULT 0",
	},
}

// migrate executes all schema DDL statements and alter migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	// Execute ALTER TABLE statements idempotently.
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	// Query table info to check if column exists.
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil // Column already exists
		}
	}

	// Column doesn't exist, add it.
	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
