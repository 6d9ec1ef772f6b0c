package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pyquiz-service/internal/domain"
)

// CategoryLoader loads category JSONB from Postgres.
type CategoryLoader struct {
	pool *pgxpool.Pool
}

func NewCategoryLoader(pool *pgxpool.Pool) *CategoryLoader {
	return &CategoryLoader{pool: pool}
}

func (l *CategoryLoader) LoadCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	var (
		cat domain.Category
		raw []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, description, questions FROM categories WHERE id=$1`, categoryID,
	).Scan(&cat.ID, &cat.Name, &cat.Description, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("load category: %w", err)
	}
	if err := json.Unmarshal(raw, &cat.Questions); err != nil {
		return domain.Category{}, fmt.Errorf("unmarshal category: %w", err)
	}
	return cat, nil
}

func (l *CategoryLoader) ListCategories(ctx context.Context) ([]domain.CategoryInfo, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, name, description, jsonb_array_length(questions) FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	infos := []domain.CategoryInfo{}
	for rows.Next() {
		var info domain.CategoryInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Description, &info.QuestionCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
