package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/evidence-analyzer/internal/domain/checklist"
)

//go:embed iso27001.yaml
var iso27001 []byte

// Default returns the built-in ISO 27001 essential controls checklist.
func Default() (*checklist.Checklist, error) {
	return Parse(iso27001)
}

// Parse decodes a checklist from YAML; items without a status take it from
// their evidence (PENDING when there is none).
func Parse(data []byte) (*checklist.Checklist, error) {
	var c checklist.Checklist
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse checklist: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("parse checklist: missing id")
	}
	for i := range c.Items {
		it := &c.Items[i]
		if it.Status == "" {
			it.Status = checklist.BestStatus(it.Evidence)
		}
		if it.Hints == nil {
			it.Hints = []string{}
		}
		if it.Evidence == nil {
			it.Evidence = []checklist.Evidence{}
		}
	}
	return &c, nil
}

// Load reads a checklist YAML file.
func Load(path string) (*checklist.Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// EnsureDefault saves the default checklist when the store has none.
func EnsureDefault(ctx context.Context, repo checklist.Repository) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	c, err := Default()
	if err != nil {
		return err
	}
	log.Printf("seeding checklist id=%s items=%d", c.ID, len(c.Items))
	return repo.Save(ctx, c)
}

// Ensure saves c unless a checklist with the same id already exists.
func Ensure(ctx context.Context, repo checklist.Repository, c *checklist.Checklist) error {
	_, err := repo.Get(ctx, c.ID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, checklist.ErrNotFound):
		return err
	}
	log.Printf("seeding checklist id=%s items=%d", c.ID, len(c.Items))
	return repo.Save(ctx, c)
}
