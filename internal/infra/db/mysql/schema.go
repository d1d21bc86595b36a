package mysql

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checklists (
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  description TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS checklist_items (
  checklist_id VARCHAR(64) NOT NULL,
  id VARCHAR(64) NOT NULL,
  position INT NOT NULL,
  category VARCHAR(128) NOT NULL,
  requirement TEXT NOT NULL,
  hints_json JSON NOT NULL,
  status VARCHAR(16) NOT NULL,
  evidence_json JSON NOT NULL,
  PRIMARY KEY (checklist_id, id)
)`,
	`CREATE TABLE IF NOT EXISTS evidence_analyses (
  id VARCHAR(64) PRIMARY KEY,
  kind VARCHAR(16) NOT NULL,
  checklist_id VARCHAR(64) NOT NULL,
  item_id VARCHAR(64) NOT NULL,
  document_name VARCHAR(255) NOT NULL,
  document_url TEXT NOT NULL,
  result_json JSON NOT NULL,
  created_at DATETIME(3) NOT NULL,
  INDEX idx_analyses_checklist (checklist_id, created_at)
)`,
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
