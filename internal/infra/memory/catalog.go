package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"pyquiz-service/internal/domain"
)

//go:embed catalog.json
var catalogJSON []byte

// StaticCatalog is a loader backed by an in-memory category list (the
// offline fallback, and a seed source for Postgres).
type StaticCatalog struct {
	order      []string
	categories map[string]domain.Category
}

// NewStaticCatalog keeps categories in the given order.
func NewStaticCatalog(categories []domain.Category) *StaticCatalog {
	c := &StaticCatalog{categories: make(map[string]domain.Category, len(categories))}
	for _, cat := range categories {
		if _, ok := c.categories[cat.ID]; !ok {
			c.order = append(c.order, cat.ID)
		}
		c.categories[cat.ID] = cat
	}
	return c
}

// DefaultCatalog parses the bundled catalog. Every question is validated, so a
// broken bundle fails here rather than mid-session.
func DefaultCatalog() (*StaticCatalog, error) {
	var categories []domain.Category
	if err := json.Unmarshal(catalogJSON, &categories); err != nil {
		return nil, fmt.Errorf("decode bundled catalog: %w", err)
	}
	for _, cat := range categories {
		for _, q := range cat.Questions {
			if err := q.Validate(); err != nil {
				return nil, fmt.Errorf("bundled category %s: %w", cat.ID, err)
			}
		}
	}
	return NewStaticCatalog(categories), nil
}

// MustDefaultCatalog is DefaultCatalog for wiring code that cannot recover.
func MustDefaultCatalog() *StaticCatalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *StaticCatalog) LoadCategory(_ context.Context, categoryID string) (domain.Category, error) {
	if cat, ok := c.categories[categoryID]; ok {
		return cat, nil
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

// GetCategory lets the catalog stand in for a cached repository; it is
// already in memory.
func (c *StaticCatalog) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	return c.LoadCategory(ctx, categoryID)
}

func (c *StaticCatalog) ListCategories(_ context.Context) ([]domain.CategoryInfo, error) {
	out := make([]domain.CategoryInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.categories[id].Info())
	}
	return out, nil
}

// All returns every category in catalog order.
func (c *StaticCatalog) All() []domain.Category {
	out := make([]domain.Category, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.categories[id])
	}
	return out
}
