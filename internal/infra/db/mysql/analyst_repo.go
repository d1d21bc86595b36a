package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
)

type AnalystRepository struct {
	db *sql.DB
}

func NewAnalystRepository(db *sql.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// Save inserts an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO evidence_analyses
  (id, kind, checklist_id, item_id, document_name, document_url, result_json, created_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  kind=VALUES(kind), checklist_id=VALUES(checklist_id), item_id=VALUES(item_id),
  document_name=VALUES(document_name), document_url=VALUES(document_url), result_json=VALUES(result_json);
`
	result := a.Result
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(string(a.Kind)), stringOrDash(a.ChecklistID), stringOrDash(a.ItemID),
		stringOrDash(a.DocumentName), a.DocumentURL, result, createdAt,
	)
	return err
}

// Paginate returns a page of analysis records ordered by created_at desc;
// an empty checklistID pages over every checklist.
func (r *AnalystRepository) Paginate(ctx context.Context, checklistID string, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, kind, checklist_id, item_id, document_name, document_url, result_json, created_at
FROM evidence_analyses
WHERE (? = '' OR checklist_id=?)
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, checklistID, checklistID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.Kind, &a.ChecklistID, &a.ItemID, &a.DocumentName, &a.DocumentURL, &a.Result, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// LatestByItem returns the latest analysis for a checklist item, nil when none
func (r *AnalystRepository) LatestByItem(ctx context.Context, checklistID, itemID string) (*domain.Analysis, error) {
	const q = `
SELECT id, kind, checklist_id, item_id, document_name, document_url, result_json, created_at
FROM evidence_analyses
WHERE checklist_id=? AND item_id=?
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, checklistID, itemID)
	var a domain.Analysis
	if err := row.Scan(&a.ID, &a.Kind, &a.ChecklistID, &a.ItemID, &a.DocumentName, &a.DocumentURL, &a.Result, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
