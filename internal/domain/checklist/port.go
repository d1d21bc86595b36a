package checklist

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a checklist or item does not exist.
var ErrNotFound = errors.New("checklist not found")

// Repository port (interface untuk persistence)
type Repository interface {
	List(ctx context.Context) ([]*Checklist, error)
	Get(ctx context.Context, id string) (*Checklist, error)
	Save(ctx context.Context, c *Checklist) error
}
