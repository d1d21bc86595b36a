package analyst

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, checklistID string, page, pageSize int) ([]*Analysis, error)
	LatestByItem(ctx context.Context, checklistID, itemID string) (*Analysis, error)
}
