package postgres

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checklists (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS checklist_items (
  checklist_id TEXT NOT NULL REFERENCES checklists(id) ON DELETE CASCADE,
  id TEXT NOT NULL,
  position INT NOT NULL,
  category TEXT NOT NULL,
  requirement TEXT NOT NULL,
  hints_json JSONB NOT NULL,
  status TEXT NOT NULL,
  evidence_json JSONB NOT NULL,
  PRIMARY KEY (checklist_id, id)
)`,
	`CREATE TABLE IF NOT EXISTS evidence_analyses (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  checklist_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  document_name TEXT NOT NULL,
  document_url TEXT NOT NULL,
  result_json JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_checklist ON evidence_analyses (checklist_id, created_at)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
