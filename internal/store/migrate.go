package store

import (
	"context"
	"database/sql"
)

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_user_created ON nodes(user_id, created_at DESC, id);`,
		`CREATE TABLE IF NOT EXISTS crud_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_id INTEGER NOT NULL,
			op TEXT NOT NULL,
			table_name TEXT NOT NULL,
			row_id TEXT NOT NULL,
			data_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crud_tx ON crud_queue(tx_id);`,
		`CREATE TABLE IF NOT EXISTS sync_status (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO state_meta(k, v) VALUES('schema_version', '1')`)
	return err
}
