package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"pyquiz-service/internal/domain"
)

type categoryRow struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID          string            `bun:"id,pk"`
	Name        string            `bun:"name,notnull"`
	Description string            `bun:"description,notnull"`
	Position    int               `bun:"position,notnull"`
	Questions   []domain.Question `bun:"questions,type:jsonb,notnull"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull"`
}

// SeedCategories upserts categories in the given order. Every question is
// validated first so a bad catalog never reaches the table.
func SeedCategories(ctx context.Context, db *bun.DB, categories []domain.Category) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([]categoryRow, 0, len(categories))
	for i, cat := range categories {
		for _, q := range cat.Questions {
			if err := q.Validate(); err != nil {
				return 0, fmt.Errorf("category %s: %w", cat.ID, err)
			}
		}
		rows = append(rows, categoryRow{
			ID:          cat.ID,
			Name:        cat.Name,
			Description: cat.Description,
			Position:    i,
			Questions:   cat.Questions,
			UpdatedAt:   now,
		})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("position = EXCLUDED.position").
		Set("questions = EXCLUDED.questions").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert categories: %w", err)
	}
	return len(rows), nil
}
