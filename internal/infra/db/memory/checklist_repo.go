package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
)

// ChecklistRepo keeps checklists in process memory. Values are copied on
// the way in and out so callers never share item slices.
type ChecklistRepo struct {
	mu    sync.RWMutex
	lists map[string]*domain.Checklist
}

var _ domain.Repository = (*ChecklistRepo)(nil)

func NewChecklistRepo() *ChecklistRepo {
	return &ChecklistRepo{lists: make(map[string]*domain.Checklist)}
}

func (r *ChecklistRepo) List(_ context.Context) ([]*domain.Checklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Checklist, 0, len(r.lists))
	for _, c := range r.lists {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ChecklistRepo) Get(_ context.Context, id string) (*domain.Checklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.lists[id]
	if !ok {
		return nil, fmt.Errorf("checklist %s: %w", id, domain.ErrNotFound)
	}
	return clone(c), nil
}

func (r *ChecklistRepo) Save(_ context.Context, c *domain.Checklist) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("checklist id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[c.ID] = clone(c)
	return nil
}

func clone(c *domain.Checklist) *domain.Checklist {
	out := *c
	out.Items = make([]domain.Item, len(c.Items))
	for i, it := range c.Items {
		it.Hints = append([]string{}, it.Hints...)
		it.Evidence = append([]domain.Evidence{}, it.Evidence...)
		out.Items[i] = it
	}
	return &out
}
