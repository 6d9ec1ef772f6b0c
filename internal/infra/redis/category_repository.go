package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"pyquiz-service/internal/domain"
)

// CategoryLoader fetches categories from a backing store (static catalog, Postgres).
type CategoryLoader interface {
	LoadCategory(ctx context.Context, categoryID string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.CategoryInfo, error)
}

// CategoryRepository caches whole categories in Redis and falls back to a loader on cache miss.
// Categories are stored as JSON: SET quiz:category:{categoryID} {json} EX ttl
type CategoryRepository struct {
	client *redis.Client
	loader CategoryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewCategoryRepository(client *redis.Client, loader CategoryLoader, ttl time.Duration) *CategoryRepository {
	return &CategoryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CategoryRepository) GetCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	if cat, ok := r.cached(ctx, categoryID); ok {
		return cat, nil
	}

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cat, ok := r.cached(ctx, categoryID); ok {
			return cat, nil
		}

		cat, err := r.loader.LoadCategory(ctx, categoryID)
		if err != nil {
			return domain.Category{}, err
		}

		if data, err := json.Marshal(cat); err == nil {
			_ = r.client.Set(ctx, r.key(categoryID), data, r.ttlWithJitter()).Err()
		}
		return cat, nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return result.(domain.Category), nil
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]domain.CategoryInfo, error) {
	return r.loader.ListCategories(ctx)
}

func (r *CategoryRepository) cached(ctx context.Context, categoryID string) (domain.Category, bool) {
	data, err := r.client.Get(ctx, r.key(categoryID)).Bytes()
	if err != nil {
		return domain.Category{}, false
	}
	var cat domain.Category
	if err := json.Unmarshal(data, &cat); err != nil || len(cat.Questions) == 0 {
		return domain.Category{}, false
	}
	return cat, true
}

func (r *CategoryRepository) key(categoryID string) string {
	return "quiz:category:" + categoryID
}

func (r *CategoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
