package bank

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pyquiz-service/internal/domain"
)

// CategoryRepository loads whole categories (cached catalog, Postgres, ...).
type CategoryRepository interface {
	GetCategory(ctx context.Context, categoryID string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.CategoryInfo, error)
}

// CatalogSource samples questions out of full categories.
type CatalogSource struct {
	repo    CategoryRepository
	shuffle bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCatalogSource samples at random when shuffle is set, otherwise it keeps
// catalog order.
func NewCatalogSource(repo CategoryRepository, shuffle bool) *CatalogSource {
	return &CatalogSource{
		repo:    repo,
		shuffle: shuffle,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CatalogSource) Questions(ctx context.Context, categoryID string, count int) ([]domain.Question, error) {
	cat, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if count > len(cat.Questions) {
		count = len(cat.Questions)
	}
	if !s.shuffle {
		return append([]domain.Question(nil), cat.Questions[:count]...), nil
	}

	s.mu.Lock()
	perm := s.rnd.Perm(len(cat.Questions))
	s.mu.Unlock()

	out := make([]domain.Question, count)
	for i := range out {
		out[i] = cat.Questions[perm[i]]
	}
	return out, nil
}

func (s *CatalogSource) Categories(ctx context.Context) ([]domain.CategoryInfo, error) {
	return s.repo.ListCategories(ctx)
}
