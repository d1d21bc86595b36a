package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
)

type ChecklistRepository struct{ db *sql.DB }

func NewChecklistRepository(db *sql.DB) *ChecklistRepository { return &ChecklistRepository{db: db} }

// List returns every checklist with its items in position order
func (r *ChecklistRepository) List(ctx context.Context) ([]*domain.Checklist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM checklists ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Checklist
	for rows.Next() {
		var c domain.Checklist
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range out {
		if c.Items, err = r.items(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get by ID; domain.ErrNotFound when missing
func (r *ChecklistRepository) Get(ctx context.Context, id string) (*domain.Checklist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, description FROM checklists WHERE id=$1 LIMIT 1;`, id)
	var c domain.Checklist
	if err := row.Scan(&c.ID, &c.Name, &c.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *ChecklistRepository) items(ctx context.Context, checklistID string) ([]domain.Item, error) {
	const q = `
SELECT id, category, requirement, hints_json::text, status, evidence_json::text
FROM checklist_items
WHERE checklist_id=$1
ORDER BY position, id;`
	rows, err := r.db.QueryContext(ctx, q, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var it domain.Item
		var hints, ev string
		if err := rows.Scan(&it.ID, &it.Category, &it.Requirement, &hints, &it.Status, &ev); err != nil {
			return nil, err
		}
		if err := decodeItemJSON(&it, hints, ev); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Save upserts the checklist and all its items in one transaction
func (r *ChecklistRepository) Save(ctx context.Context, c *domain.Checklist) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const qc = `
INSERT INTO checklists (id, name, description)
VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description;`
	if _, err := tx.ExecContext(ctx, qc, c.ID, stringOrDash(c.Name), c.Description); err != nil {
		return err
	}

	const qi = `
INSERT INTO checklist_items
  (checklist_id, id, position, category, requirement, hints_json, status, evidence_json)
VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7,$8::jsonb)
ON CONFLICT (checklist_id, id) DO UPDATE SET
  position=EXCLUDED.position, category=EXCLUDED.category, requirement=EXCLUDED.requirement,
  hints_json=EXCLUDED.hints_json, status=EXCLUDED.status, evidence_json=EXCLUDED.evidence_json;`
	for i, it := range c.Items {
		hints, err := jsonOrEmpty(it.Hints)
		if err != nil {
			return err
		}
		ev, err := jsonOrEmpty(it.Evidence)
		if err != nil {
			return err
		}
		status := it.Status
		if status == "" {
			status = domain.StatusPending
		}
		if _, err := tx.ExecContext(ctx, qi, c.ID, it.ID, i, stringOrDash(it.Category), it.Requirement, hints, string(status), ev); err != nil {
			return err
		}
	}
	return tx.Commit()
}
