package postgres

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

// Save inserts or updates an analysis record
func (r *AnalystRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO evidence_analyses
  (id, kind, checklist_id, item_id, document_name, document_url, result_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7::jsonb,$8)
ON CONFLICT (id) DO UPDATE SET
  kind=EXCLUDED.kind,
  checklist_id=EXCLUDED.checklist_id,
  item_id=EXCLUDED.item_id,
  document_name=EXCLUDED.document_name,
  document_url=EXCLUDED.document_url,
  result_json=EXCLUDED.result_json;`
	result := a.Result
	if strings.TrimSpace(result) == "" {
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

const selectAnalysis = `
SELECT id, kind, checklist_id, item_id, document_name, document_url, result_json::text, created_at
FROM evidence_analyses`

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

	q := selectAnalysis + `
WHERE ($1 = '' OR checklist_id=$1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, checklistID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestByItem returns the latest analysis for a checklist item, nil when none
func (r *AnalystRepository) LatestByItem(ctx context.Context, checklistID, itemID string) (*domain.Analysis, error) {
	q := selectAnalysis + `
WHERE checklist_id=$1 AND item_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, checklistID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var a domain.Analysis
	if err := s.Scan(&a.ID, &a.Kind, &a.ChecklistID, &a.ItemID, &a.DocumentName, &a.DocumentURL, &a.Result, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
