package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/analyst"
)

// AnalysisRepo is an append-only in-memory audit log, newest first on read.
type AnalysisRepo struct {
	mu   sync.RWMutex
	rows []domain.Analysis
}

var _ domain.Repository = (*AnalysisRepo)(nil)

func NewAnalysisRepo() *AnalysisRepo { return &AnalysisRepo{} }

func (r *AnalysisRepo) Save(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *a)
	return nil
}

func (r *AnalysisRepo) Paginate(_ context.Context, checklistID string, page, pageSize int) ([]*domain.Analysis, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Analysis
	for i := len(r.rows) - 1; i >= 0; i-- {
		if checklistID != "" && r.rows[i].ChecklistID != checklistID {
			continue
		}
		a := r.rows[i]
		matched = append(matched, &a)
	}
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*domain.Analysis{}, nil
	}
	end := min(start+pageSize, len(matched))
	return matched[start:end], nil
}

// LatestByItem returns nil, nil when the item has no analysis yet.
func (r *AnalysisRepo) LatestByItem(_ context.Context, checklistID, itemID string) (*domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].ChecklistID == checklistID && r.rows[i].ItemID == itemID {
			a := r.rows[i]
			return &a, nil
		}
	}
	return nil, nil
}
