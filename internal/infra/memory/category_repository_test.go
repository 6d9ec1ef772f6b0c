package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pyquiz-service/internal/domain"
)

func TestCategoryRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		CategoryLoader: NewStaticCatalog([]domain.Category{sampleCategory()}),
	}
	repo := NewCategoryRepository(loader, time.Minute)

	if _, err := repo.GetCategory(context.Background(), "algorithms"); err != nil {
		t.Fatalf("get category: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetCategory(context.Background(), "algorithms"); err != nil {
		t.Fatalf("get category 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCategoryRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{
		CategoryLoader: NewStaticCatalog([]domain.Category{sampleCategory()}),
	}
	repo := NewCategoryRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetCategory(context.Background(), "algorithms")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetCategory(context.Background(), "algorithms")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestCategoryRepositoryDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{CategoryLoader: NewStaticCatalog(nil)}
	repo := NewCategoryRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetCategory(context.Background(), "missing"); !errors.Is(err, domain.ErrCategoryNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected misses to reach the loader, got %d", loader.calls)
	}
}

type countingLoader struct {
	CategoryLoader
	calls int
}

func (l *countingLoader) LoadCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	l.calls++
	return l.CategoryLoader.LoadCategory(ctx, categoryID)
}

func sampleCategory() domain.Category {
	return domain.Category{
		ID:   "algorithms",
		Name: "Algorithms & Data Structures",
		Questions: []domain.Question{
			{
				ID:                 "alg1",
				Prompt:             "What is the time complexity of binary search?",
				Options:            []string{"O(n)", "O(log n)", "O(n log n)", "O(n²)"},
				CorrectOptionIndex: 1,
				Difficulty:         domain.DifficultyMedium,
				Points:             150,
			},
		},
	}
}
