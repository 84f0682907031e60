package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schemaStatements mirror the two-table layout: dhikar_type holds one row
// per (group, topic) counter, dhikar_entry holds positive contributions.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dhikar_type (
		id SERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL,
		dhikar_topic_id INTEGER NOT NULL,
		dhikar_title VARCHAR(225) NOT NULL,
		CONSTRAINT uq_group_topic UNIQUE (group_id, dhikar_topic_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_dhikar_type_group_id ON dhikar_type (group_id)`,
	`CREATE INDEX IF NOT EXISTS ix_dhikar_type_dhikar_topic_id ON dhikar_type (dhikar_topic_id)`,
	`CREATE TABLE IF NOT EXISTS dhikar_entry (
		entry_id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		dhikar_count INTEGER NOT NULL,
		dhikar_type_id INTEGER NOT NULL REFERENCES dhikar_type (id)
	)`,
	`ALTER TABLE dhikar_entry ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now()`,
	`CREATE INDEX IF NOT EXISTS ix_dhikar_entry_user_id ON dhikar_entry (user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_dhikar_entry_type_user ON dhikar_entry (dhikar_type_id, user_id, dhikar_count)`,
}

// EnsureSchema creates the ledger tables when they are missing. Existing
// tables are left untouched apart from additive columns and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	log.Println("Database schema ready")
	return nil
}
